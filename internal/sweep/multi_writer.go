package sweep

import "l3vpn-sweep/internal/results"

// MultiWriter fan-outs trial and point rows to multiple writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Writers returns the fan-out targets.
func (mw *MultiWriter) Writers() []Writer { return mw.writers }

// WriteTrial sends a trial row to all writers.
func (mw *MultiWriter) WriteTrial(row results.TrialRow) error {
	for _, w := range mw.writers {
		if err := w.WriteTrial(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTrials sends multiple trial rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteTrials(rows []results.TrialRow) error {
	for _, w := range mw.writers {
		if err := WriteTrials(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WritePoint sends a point row to all writers.
func (mw *MultiWriter) WritePoint(row results.PointRow) error {
	for _, w := range mw.writers {
		if err := w.WritePoint(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePoints sends multiple point rows to all writers, using batch if supported.
func (mw *MultiWriter) WritePoints(rows []results.PointRow) error {
	for _, w := range mw.writers {
		if err := WritePoints(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// SetAdminStatus forwards the status server address to writers that show it.
func (mw *MultiWriter) SetAdminStatus(addr string) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(addr)
		}
	}
}
