package record

import (
	"encoding/json"
	"os"
)

// FileRecorder appends records to a JSONL file.
type FileRecorder struct {
	f   *os.File
	enc *json.Encoder
}

// NewFileRecorder opens path for appending, creating it if needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{f: f, enc: json.NewEncoder(f)}, nil
}

// Record writes s as one JSON line.
func (r *FileRecorder) Record(s Send) error {
	return r.enc.Encode(s)
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	return r.f.Close()
}
