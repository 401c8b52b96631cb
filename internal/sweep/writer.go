package sweep

import "l3vpn-sweep/internal/results"

// TrialWriter receives every simulator invocation, successful or not.
type TrialWriter interface {
	WriteTrial(results.TrialRow) error
}

// PointWriter receives the aggregate of each metric at each level.
type PointWriter interface {
	WritePoint(results.PointRow) error
}

// Writer is a sink for both trials and points.
type Writer interface {
	TrialWriter
	PointWriter
}

// Optional: writers may support batch mode
type batchTrialWriter interface {
	WriteTrials([]results.TrialRow) error
}

type batchPointWriter interface {
	WritePoints([]results.PointRow) error
}

// discardWriter drops everything.
type discardWriter struct{}

func (discardWriter) WriteTrial(results.TrialRow) error { return nil }
func (discardWriter) WritePoint(results.PointRow) error { return nil }

// WritePoints sends rows to w, using batch mode if supported.
func WritePoints(w PointWriter, rows []results.PointRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchPointWriter); ok {
		return bw.WritePoints(rows)
	}
	for _, r := range rows {
		if err := w.WritePoint(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTrials sends rows to w, using batch mode if supported.
func WriteTrials(w TrialWriter, rows []results.TrialRow) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchTrialWriter); ok {
		return bw.WriteTrials(rows)
	}
	for _, r := range rows {
		if err := w.WriteTrial(r); err != nil {
			return err
		}
	}
	return nil
}

// AdminStatusWriter allows writers to show where the status server listens.
type AdminStatusWriter interface {
	SetAdminStatus(addr string)
}
