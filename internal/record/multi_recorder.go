package record

// MultiRecorder fans out records to several recorders.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder creates a MultiRecorder. Nil entries are skipped.
func NewMultiRecorder(rs ...Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range rs {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Record sends s to every recorder and returns the first error. All
// recorders see the record even when an earlier one fails.
func (m *MultiRecorder) Record(s Send) error {
	var first error
	for _, r := range m.recorders {
		if err := r.Record(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}
