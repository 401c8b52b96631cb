package simulator

import (
	"context"
	"fmt"
	"io"

	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/scenario"
)

// Recorded answers scenarios from a previously captured trial log.
type Recorded struct {
	entries map[scenario.Key]Result
}

// NewRecorded indexes successful trials by (modality, protocol, nodes, trial).
// Later rows for the same key replace earlier ones.
func NewRecorded(rows []results.TrialRow) *Recorded {
	r := &Recorded{entries: make(map[scenario.Key]Result, len(rows))}
	for _, row := range rows {
		if row.Failed {
			continue
		}
		k := scenario.Key{Modality: row.Modality, Protocol: scenario.Protocol(row.Protocol), Nodes: row.Nodes, Trial: row.Trial}
		r.entries[k] = Result{ErrorPct: row.ErrorPct, DelayMs: row.DelayMs, JitterMs: row.JitterMs}
	}
	return r
}

// LoadRecorded reads a JSONL trial log from r.
func LoadRecorded(r io.Reader) (*Recorded, error) {
	rows, err := results.ReadTrials(r)
	if err != nil {
		return nil, err
	}
	return NewRecorded(rows), nil
}

// LoadRecordedFile opens a JSONL trial log.
func LoadRecordedFile(path string) (*Recorded, error) {
	rows, err := results.ReadTrialsFile(path)
	if err != nil {
		return nil, err
	}
	return NewRecorded(rows), nil
}

// Len returns the number of indexed trials.
func (r *Recorded) Len() int { return len(r.entries) }

// Run returns the recorded result for sc.
func (r *Recorded) Run(ctx context.Context, sc scenario.Scenario) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res, ok := r.entries[sc.Key()]
	if !ok {
		return Result{}, &TrialError{Key: sc.Key(), Err: fmt.Errorf("no recorded result")}
	}
	return res, nil
}
