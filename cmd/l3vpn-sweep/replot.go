package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/plot"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/store"
	"l3vpn-sweep/internal/sweep"
)

var replotFlags struct {
	input, dbPath, runID     string
	configPath, schemaPath   string
	outDir, prefix, terminal string
	logLevel                 string
}

var replotCmd = &cobra.Command{
	Use:   "replot",
	Short: "Rebuild the Gnuplot scripts from recorded trials",
	Long:  "replot aggregates a JSONL trial log or a stored run again and writes the Gnuplot scripts without running the simulator.",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := &replotFlags
		if (f.input == "") == (f.dbPath == "") {
			return fmt.Errorf("exactly one of --input or --db is required")
		}
		log := logging.New(f.logLevel, nil)
		ctx := logging.NewContext(context.Background(), log)

		var cfg *config.SweepConfig
		if f.configPath != "" {
			c, err := config.Load(f.configPath, f.schemaPath)
			if err != nil {
				return err
			}
			cfg = c
		}

		var trials []results.TrialRow
		if f.input != "" {
			rows, err := results.ReadTrialsFile(f.input)
			if err != nil {
				return err
			}
			trials = rows
		} else {
			rows, runCfg, err := loadStoredRun(ctx, f.dbPath, f.runID)
			if err != nil {
				return err
			}
			trials = rows
			if cfg == nil {
				cfg = runCfg
			}
		}
		if cfg == nil {
			cfg = config.Default()
		}
		if cmd.Flags().Changed("terminal") {
			cfg.Output.Terminal = f.terminal
		}

		rep, err := sweep.Aggregate(trials, cfg)
		if err != nil {
			return err
		}
		paths, err := plot.WriteFiles(f.outDir, f.prefix, rep.Pages)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		log.Info("replot finished", "run_id", rep.RunID, "trials", rep.Trials, "failed", rep.Failed, "files", len(paths))
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// loadStoredRun reads a run's trials and configuration. An empty runID
// selects the latest run.
func loadStoredRun(ctx context.Context, dbPath, runID string) ([]results.TrialRow, *config.SweepConfig, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	if runID == "" {
		run, err := db.LatestRun(ctx)
		if err != nil {
			return nil, nil, err
		}
		runID = run.ID
		logging.FromContext(ctx).Info("using latest run", "run_id", runID)
	}
	trials, err := db.Trials(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := db.RunConfig(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return trials, cfg, nil
}

func init() {
	f := replotCmd.Flags()
	f.StringVar(&replotFlags.input, "input", "", "Path to a JSONL trial log")
	f.StringVar(&replotFlags.dbPath, "db", "", "SQLite results database")
	f.StringVar(&replotFlags.runID, "run", "", "Run to replot from --db (latest when empty)")
	f.StringVar(&replotFlags.configPath, "config", "", "Sweep configuration YAML (t_student and modality order)")
	f.StringVar(&replotFlags.schemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	f.StringVar(&replotFlags.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	addOutputFlags(f, &replotFlags.outDir, &replotFlags.prefix, &replotFlags.terminal)
}
