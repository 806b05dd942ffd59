// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource []byte

// ValidateBytes checks a YAML document against the embedded CUE schema.
func ValidateBytes(yamlBytes []byte) error {
	var data map[string]any
	if err := yaml.Unmarshal(yamlBytes, &data); err != nil {
		return fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	configVal := ctx.Encode(data)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot encode YAML config: %w", err)
	}

	final := def.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
