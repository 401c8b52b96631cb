package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/sweep"
)

func withTerminal(t *testing.T, tty bool) {
	t.Helper()
	prev := isTerminal
	isTerminal = func() bool { return tty }
	t.Cleanup(func() { isTerminal = prev })
}

func TestNewWritersPrintOnly(t *testing.T) {
	withTerminal(t, true)
	ws, err := newWriters(config.Default(), writerOptions{PrintOnly: true, TUI: true}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer ws.Close()
	if _, ok := ws.writer.(*sweep.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sweep.JSONStdoutWriter, got %T", ws.writer)
	}
	if ws.tui != nil {
		t.Fatalf("print-only must not start the TUI")
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	cases := []struct {
		tty  bool
		want string
	}{
		{false, "*sweep.JSONStdoutWriter"},
		{true, "*sweep.ColorStdoutWriter"},
	}
	for _, tc := range cases {
		withTerminal(t, tc.tty)
		ws, err := newWriters(config.Default(), writerOptions{}, logging.Discard())
		if err != nil {
			t.Fatalf("newWriters returned error: %v", err)
		}
		ws.Close()
		switch ws.writer.(type) {
		case *sweep.JSONStdoutWriter:
			if tc.want != "*sweep.JSONStdoutWriter" {
				t.Errorf("tty=%v: got JSON writer, want %s", tc.tty, tc.want)
			}
		case *sweep.ColorStdoutWriter:
			if tc.want != "*sweep.ColorStdoutWriter" {
				t.Errorf("tty=%v: got color writer, want %s", tc.tty, tc.want)
			}
		default:
			t.Errorf("tty=%v: unexpected writer %T", tc.tty, ws.writer)
		}
	}
}

func TestNewWritersLogFileAndDB(t *testing.T) {
	withTerminal(t, false)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "trials.jsonl")
	dbPath := filepath.Join(dir, "sweep.db")
	ws, err := newWriters(config.Default(), writerOptions{PrintOnly: true, LogFile: logPath, DBPath: dbPath}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	mw, ok := ws.writer.(*sweep.MultiWriter)
	if !ok {
		t.Fatalf("expected *sweep.MultiWriter, got %T", ws.writer)
	}
	if len(mw.Writers()) != 3 {
		t.Fatalf("expected stdout, file and db writers, got %d", len(mw.Writers()))
	}
	if ws.store == nil {
		t.Fatalf("expected the SQLite store to be exposed")
	}

	row := results.TrialRow{RunID: "r", Modality: "mod1", Protocol: "csma", Nodes: 10, Timestamp: time.Now()}
	if err := ws.writer.WriteTrial(row); err != nil {
		t.Fatalf("write trial failed: %v", err)
	}
	if err := ws.writer.WritePoint(results.PointRow{RunID: "r", Modality: "mod1", Protocol: "csma", Metric: results.MetricDelay, Nodes: 10, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write point failed: %v", err)
	}
	ws.Close()

	for _, p := range []string{logPath, logPath + ".points"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s failed: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestApplySweepFlagsOnlyChanged(t *testing.T) {
	f := sweepCmd.Flags()
	t.Cleanup(func() { resetFlags(t, sweepCmd) })
	cfg := config.Default()
	cfg.Grid.Trials = 5
	cfg.Site2Nodes = 12

	if err := f.Set("trials", "3"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("csma-cmd", "./ns3 run scratch/simulacion-csma --"); err != nil {
		t.Fatal(err)
	}
	applySweepFlags(f, cfg)

	if cfg.Grid.Trials != 3 {
		t.Errorf("trials flag not applied: %d", cfg.Grid.Trials)
	}
	if cfg.Site2Nodes != 12 {
		t.Errorf("unset flag overrode config: site2_nodes=%d", cfg.Site2Nodes)
	}
	want := []string{"./ns3", "run", "scratch/simulacion-csma", "--"}
	if len(cfg.Simulator.CSMACommand) != len(want) {
		t.Fatalf("csma command = %q", cfg.Simulator.CSMACommand)
	}
	for i := range want {
		if cfg.Simulator.CSMACommand[i] != want[i] {
			t.Errorf("csma command = %q", cfg.Simulator.CSMACommand)
		}
	}
}

func TestNewSimulatorRequiresBackend(t *testing.T) {
	cfg := config.Default()
	if _, err := newSimulator(cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error without simulator commands")
	}
	cfg.Simulator.CSMACommand = []string{"true"}
	if _, err := newSimulator(cfg, logging.Discard()); err != nil {
		t.Fatalf("newSimulator: %v", err)
	}
}
