package sweep

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"l3vpn-sweep/internal/results"
)

// JSONStdoutWriter prints trials and points as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteTrial outputs a trial row in JSON format.
func (w *JSONStdoutWriter) WriteTrial(row results.TrialRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WritePoint outputs a point row in JSON format.
func (w *JSONStdoutWriter) WritePoint(row results.PointRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
