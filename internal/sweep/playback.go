package sweep

import (
	"io"
	"os"
	"time"

	"l3vpn-sweep/internal/results"
)

// ReplayLog replays trial rows from r to writer. A speed >0 spaces rows by
// their recorded timestamps divided by speed; speed <= 0 replays at once.
func ReplayLog(r io.Reader, writer TrialWriter, speed float64) error {
	var prev time.Time
	return results.DecodeTrials(r, func(row results.TrialRow) error {
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		prev = row.Timestamp
		return writer.WriteTrial(row)
	})
}

// ReplayLogFile opens a file and replays its trial rows.
func ReplayLogFile(path string, writer TrialWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}

// Collector keeps every row in memory.
type Collector struct {
	Trials []results.TrialRow
	Points []results.PointRow
}

func (c *Collector) WriteTrial(r results.TrialRow) error {
	c.Trials = append(c.Trials, r)
	return nil
}

func (c *Collector) WritePoint(r results.PointRow) error {
	c.Points = append(c.Points, r)
	return nil
}
