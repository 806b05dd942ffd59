package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// StdoutRecorder prints records as JSON to STDOUT.
type StdoutRecorder struct {
	out io.Writer
}

// NewStdoutRecorder creates a StdoutRecorder writing to os.Stdout.
func NewStdoutRecorder() *StdoutRecorder {
	return &StdoutRecorder{out: os.Stdout}
}

// Record outputs s in JSON format.
func (w *StdoutRecorder) Record(s Send) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
