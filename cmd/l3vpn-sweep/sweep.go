package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"l3vpn-sweep/internal/admin"
	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/plot"
	"l3vpn-sweep/internal/simulator"
	"l3vpn-sweep/internal/sweep"
)

var sweepFlags struct {
	configPath string
	schemaPath string
	logLevel   string

	ton, toff, dataRate string
	sizePkt             uint32

	csmaPerror   float64
	csmaDataRate string
	csmaDelay    string
	wifiDataRate string

	site2Nodes                         int
	minNodes, maxNodes, nodeStep, runs int

	seed            int64
	parallel        int
	continueOnError bool

	csmaCmd, wifiCmd, recorded, timeout string

	outDir, prefix, terminal string
	out                      writerOptions
	adminAddr                string
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the full modality x protocol x node-count sweep",
	Long: "sweep runs the simulator for every modality, protocol, node count and trial, " +
		"streams trial and point rows to the configured sinks and writes one Gnuplot script per modality and metric.",
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.StringVar(&sweepFlags.configPath, "config", "", "Path to sweep configuration YAML (defaults apply when empty)")
	f.StringVar(&sweepFlags.schemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	f.StringVar(&sweepFlags.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	f.StringVar(&sweepFlags.ton, "ton", "150ms", "VoIP source on time")
	f.StringVar(&sweepFlags.toff, "toff", "650ms", "VoIP source off time")
	f.Uint32Var(&sweepFlags.sizePkt, "size-pkt", 160, "Packet size in bytes")
	f.StringVar(&sweepFlags.dataRate, "data-rate", "64kbps", "VoIP source data rate")

	f.Float64Var(&sweepFlags.csmaPerror, "csma-perror", 1e-10, "CSMA bit-error probability")
	f.StringVar(&sweepFlags.csmaDataRate, "csma-data-rate", "10Mbps", "CSMA channel data rate")
	f.StringVar(&sweepFlags.csmaDelay, "csma-delay", "6560ns", "CSMA channel delay")
	f.StringVar(&sweepFlags.wifiDataRate, "wifi-data-rate", "9Mbps", "Wi-Fi OFDM data rate (6..54Mbps)")

	f.IntVar(&sweepFlags.site2Nodes, "site2-nodes", 30, "Nodes at the remote site")
	f.IntVar(&sweepFlags.minNodes, "min-nodes", 10, "First node-count level")
	f.IntVar(&sweepFlags.maxNodes, "max-nodes", 100, "Last node-count level")
	f.IntVar(&sweepFlags.nodeStep, "node-step", 10, "Node-count step")
	f.IntVar(&sweepFlags.runs, "trials", 10, "Trials per level")

	f.Int64Var(&sweepFlags.seed, "seed", 1, "Base simulator seed")
	f.IntVar(&sweepFlags.parallel, "parallel", 1, "Trials run concurrently within a level")
	f.BoolVar(&sweepFlags.continueOnError, "continue-on-error", false, "Skip failed trials instead of aborting")

	f.StringVar(&sweepFlags.csmaCmd, "csma-cmd", "", "Simulator command for the CSMA scenario")
	f.StringVar(&sweepFlags.wifiCmd, "wifi-cmd", "", "Simulator command for the Wi-Fi scenario")
	f.StringVar(&sweepFlags.recorded, "recorded", "", "Answer trials from a JSONL trial log instead of running the simulator")
	f.StringVar(&sweepFlags.timeout, "timeout", "30m", "Per-trial simulator timeout (0 disables)")

	addOutputFlags(f, &sweepFlags.outDir, &sweepFlags.prefix, &sweepFlags.terminal)
	f.StringVar(&sweepFlags.out.LogFile, "log-file", "", "Path to export trial rows (JSONL); points go to <path>.points")
	f.StringVar(&sweepFlags.out.DBPath, "db", "", "SQLite results database")
	f.BoolVar(&sweepFlags.out.PrintOnly, "print-only", false, "Print JSON rows to STDOUT instead of writing to GreptimeDB")
	f.BoolVar(&sweepFlags.out.TUI, "tui", false, "Show the interactive terminal UI when STDOUT is a terminal")
	f.StringVar(&sweepFlags.adminAddr, "admin-addr", "", "Serve sweep progress over HTTP on this address (e.g. :8080)")
}

func addOutputFlags(f *pflag.FlagSet, dir, prefix, terminal *string) {
	f.StringVar(dir, "out-dir", ".", "Directory for Gnuplot scripts")
	f.StringVar(prefix, "prefix", "proyecto", "Gnuplot script file prefix")
	f.StringVar(terminal, "terminal", "", "Gnuplot terminal (e.g. png); output defaults to <script>.<terminal>")
}

func loadConfig(path, schema string) (*config.SweepConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path, schema)
}

// applySweepFlags copies explicitly set flags over the loaded config.
func applySweepFlags(f *pflag.FlagSet, cfg *config.SweepConfig) {
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	fl := &sweepFlags
	set("ton", func() { cfg.Traffic.TOn = fl.ton })
	set("toff", func() { cfg.Traffic.TOff = fl.toff })
	set("size-pkt", func() { cfg.Traffic.PacketSize = fl.sizePkt })
	set("data-rate", func() { cfg.Traffic.DataRate = fl.dataRate })
	set("csma-perror", func() { cfg.CSMA.ErrorRate = fl.csmaPerror })
	set("csma-data-rate", func() { cfg.CSMA.DataRate = fl.csmaDataRate })
	set("csma-delay", func() { cfg.CSMA.Delay = fl.csmaDelay })
	set("wifi-data-rate", func() { cfg.Wifi.DataRate = fl.wifiDataRate })
	set("site2-nodes", func() { cfg.Site2Nodes = fl.site2Nodes })
	set("min-nodes", func() { cfg.Grid.MinNodes = fl.minNodes })
	set("max-nodes", func() { cfg.Grid.MaxNodes = fl.maxNodes })
	set("node-step", func() { cfg.Grid.NodeStep = fl.nodeStep })
	set("trials", func() { cfg.Grid.Trials = fl.runs })
	set("seed", func() { cfg.Seed = fl.seed })
	set("parallel", func() { cfg.Parallel = fl.parallel })
	set("continue-on-error", func() { cfg.ContinueOnError = fl.continueOnError })
	set("csma-cmd", func() { cfg.Simulator.CSMACommand = strings.Fields(fl.csmaCmd) })
	set("wifi-cmd", func() { cfg.Simulator.WifiCommand = strings.Fields(fl.wifiCmd) })
	set("recorded", func() { cfg.Simulator.Recorded = fl.recorded })
	set("timeout", func() { cfg.Simulator.Timeout = fl.timeout })
	set("out-dir", func() { cfg.Output.Dir = fl.outDir })
	set("prefix", func() { cfg.Output.Prefix = fl.prefix })
	set("terminal", func() { cfg.Output.Terminal = fl.terminal })
}

func newSimulator(cfg *config.SweepConfig, log *slog.Logger) (simulator.Simulator, error) {
	if cfg.Simulator.Recorded != "" {
		rec, err := simulator.LoadRecordedFile(cfg.Simulator.Recorded)
		if err != nil {
			return nil, fmt.Errorf("load recorded trials: %w", err)
		}
		log.Info("using recorded trials", "path", cfg.Simulator.Recorded, "entries", rec.Len())
		return rec, nil
	}
	if len(cfg.Simulator.CSMACommand) == 0 && len(cfg.Simulator.WifiCommand) == 0 {
		return nil, fmt.Errorf("no simulator configured: set --csma-cmd/--wifi-cmd or --recorded")
	}
	timeout, err := cfg.TrialTimeout()
	if err != nil {
		return nil, err
	}
	e := simulator.NewExec(cfg.Simulator.CSMACommand, cfg.Simulator.WifiCommand, timeout)
	e.Logger = log
	return e, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(sweepFlags.configPath, sweepFlags.schemaPath)
	if err != nil {
		return err
	}
	applySweepFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := sweepFlags.out
	var logOut io.Writer = os.Stderr
	if opts.TUI && isTerminal() {
		// the alternate screen owns the terminal
		logOut = io.Discard
	}
	log := logging.New(sweepFlags.logLevel, logOut)

	sim, err := newSimulator(cfg, log)
	if err != nil {
		return err
	}

	ws, err := newWriters(cfg, opts, log)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, log)

	runner := sweep.NewRunner(cfg, sim, ws.writer, log)
	if ws.store != nil {
		if err := ws.store.BeginRun(ctx, runner.RunID(), cfg, time.Now()); err != nil {
			return err
		}
	}

	if sweepFlags.adminAddr != "" {
		srv := admin.NewServer(runner)
		go func() {
			if err := srv.Start(ctx, sweepFlags.adminAddr); err != nil {
				log.Error("admin server failed", "err", err)
			}
		}()
		if aw, ok := ws.writer.(sweep.AdminStatusWriter); ok {
			aw.SetAdminStatus(sweepFlags.adminAddr)
		}
	}

	rep, runErr := runner.Run(ctx)

	if ws.store != nil {
		if err := ws.store.FinishRun(context.Background(), runner.RunID(), time.Now(), runErr); err != nil {
			log.Error("record run end", "err", err)
		}
	}
	if rep != nil && len(rep.Points) > 0 {
		paths, err := plot.WriteFiles(cfg.Output.Dir, cfg.Output.Prefix, rep.Pages)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		log.Info("plots written", "dir", cfg.Output.Dir, "files", len(paths), "partial", runErr != nil)
	}
	return runErr
}
