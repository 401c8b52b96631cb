package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/sweep"
)

var (
	replayInput    string
	replaySpeed    float64
	replayOpts     writerOptions
	replayLogLevel string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a trial log into the result sinks",
	Long: "replay feeds trial rows from a JSONL log back into GreptimeDB, SQLite or STDOUT, " +
		"then writes the points aggregated from them. Runs replayed into --db are registered so replot and runs can find them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := logging.New(replayLogLevel, nil)
		ctx := context.Background()

		rows, err := results.ReadTrialsFile(replayInput)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%s: no trial rows", replayInput)
		}
		fallbackID := uuid.NewString()
		runs := groupByRun(rows, fallbackID)

		opts := replayOpts
		opts.TUI = false
		cfg := config.Default()
		ws, err := newWriters(cfg, opts, log)
		if err != nil {
			return err
		}
		defer ws.Close()

		if ws.store != nil {
			for _, r := range runs {
				if err := ws.store.BeginRun(ctx, r.id, nil, r.rows[0].Timestamp); err != nil {
					return err
				}
			}
		}

		replayErr := sweep.ReplayLogFile(replayInput, stampRunID{ws.writer, fallbackID}, replaySpeed)
		if replayErr == nil {
			for _, r := range runs {
				rep, err := sweep.Aggregate(r.rows, cfg)
				if err != nil {
					replayErr = err
					break
				}
				if err := sweep.WritePoints(ws.writer, rep.Points); err != nil {
					replayErr = fmt.Errorf("write points: %w", err)
					break
				}
				log.Info("run replayed", "run_id", r.id, "trials", rep.Trials, "points", len(rep.Points))
			}
		}

		if ws.store != nil {
			for _, r := range runs {
				if err := ws.store.FinishRun(ctx, r.id, r.rows[len(r.rows)-1].Timestamp, replayErr); err != nil {
					log.Error("record run end", "run_id", r.id, "err", err)
				}
			}
		}
		return replayErr
	},
}

type replayedRun struct {
	id   string
	rows []results.TrialRow
}

// groupByRun splits rows by run ID in order of first appearance. Rows
// without a run ID belong to fallbackID.
func groupByRun(rows []results.TrialRow, fallbackID string) []replayedRun {
	var runs []replayedRun
	index := make(map[string]int)
	for _, row := range rows {
		if row.RunID == "" {
			row.RunID = fallbackID
		}
		i, ok := index[row.RunID]
		if !ok {
			i = len(runs)
			index[row.RunID] = i
			runs = append(runs, replayedRun{id: row.RunID})
		}
		runs[i].rows = append(runs[i].rows, row)
	}
	return runs
}

// stampRunID fills in the run ID of rows recorded without one.
type stampRunID struct {
	sweep.TrialWriter
	id string
}

func (s stampRunID) WriteTrial(row results.TrialRow) error {
	if row.RunID == "" {
		row.RunID = s.id
	}
	return s.TrialWriter.WriteTrial(row)
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayInput, "input", "", "Path to trial log file")
	f.Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier (0 replays at once)")
	f.BoolVar(&replayOpts.PrintOnly, "print-only", false, "Print JSON rows to STDOUT instead of writing to GreptimeDB")
	f.StringVar(&replayOpts.DBPath, "db", "", "SQLite results database")
	f.StringVar(&replayLogLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	replayCmd.MarkFlagRequired("input")
}
