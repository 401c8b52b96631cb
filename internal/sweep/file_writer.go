package sweep

import (
	"encoding/json"
	"os"

	"l3vpn-sweep/internal/results"
)

// FileWriter writes trials and points to JSONL files.
type FileWriter struct {
	trialFile *os.File
	pointFile *os.File
	trialEnc  *json.Encoder
	pointEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. pointPath may be empty to skip the points log.
func NewFileWriter(trialPath, pointPath string) (*FileWriter, error) {
	tf, err := os.Create(trialPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{trialFile: tf, trialEnc: json.NewEncoder(tf)}
	if pointPath != "" {
		pf, err := os.Create(pointPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.pointFile = pf
		fw.pointEnc = json.NewEncoder(pf)
	}
	return fw, nil
}

// WriteTrial logs a single trial row.
func (f *FileWriter) WriteTrial(row results.TrialRow) error {
	return f.trialEnc.Encode(row)
}

// WriteTrials logs multiple trial rows.
func (f *FileWriter) WriteTrials(rows []results.TrialRow) error {
	for _, r := range rows {
		if err := f.WriteTrial(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePoint logs a point row, if enabled.
func (f *FileWriter) WritePoint(row results.PointRow) error {
	if f.pointEnc == nil {
		return nil
	}
	return f.pointEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.trialFile != nil {
		if e := f.trialFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.pointFile != nil {
		if e := f.pointFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
