package dashboard

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/juju/errors"
)

//go:embed templates/*.tmpl
var templates embed.FS

// DatasourceEnv names the variable holding the Grafana datasource UID of the
// GreptimeDB instance that receives mirrored sends.
const DatasourceEnv = "GREPTIMEDB_DATASOURCE_UID"

// Params is the data passed to every template.
type Params struct {
	Table string
}

// Render executes the dashboard templates and writes the results to outDir
// with the .tmpl suffix removed.
func Render(outDir string, p Params) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", errors.NotFoundf("environment variable %s", key)
			}
			return v, nil
		},
	}

	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tpl := range t.Templates() {
		if !strings.HasSuffix(tpl.Name(), ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(tpl.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := tpl.Execute(f, p); err != nil {
			f.Close()
			return errors.Annotatef(err, "render %s", tpl.Name())
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
