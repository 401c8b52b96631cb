package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeTrials streams trial rows from a JSONL reader to fn.
// Lines are decoded in order; fn returning an error stops decoding.
func DecodeTrials(r io.Reader, fn func(TrialRow) error) error {
	dec := json.NewDecoder(r)
	for n := 1; ; n++ {
		var row TrialRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("trial log record %d: %w", n, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadTrials loads every trial row of a JSONL log.
func ReadTrials(r io.Reader) ([]TrialRow, error) {
	var rows []TrialRow
	err := DecodeTrials(r, func(row TrialRow) error {
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// ReadTrialsFile opens path and loads its trial rows.
func ReadTrialsFile(path string) ([]TrialRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrials(f)
}
