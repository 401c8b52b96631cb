package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/store"
	"l3vpn-sweep/internal/sweep"
)

// writerOptions are the output flags shared by sweep and replay.
type writerOptions struct {
	PrintOnly bool
	LogFile   string
	DBPath    string
	TUI       bool
}

// writerSet is the assembled sink plus the pieces the caller drives directly.
type writerSet struct {
	writer  sweep.Writer
	store   *store.SQLite
	tui     *sweep.TUIWriter
	closers []io.Closer
}

// Close releases every sink, the TUI first so the terminal is restored.
func (ws *writerSet) Close() {
	for i := len(ws.closers) - 1; i >= 0; i-- {
		ws.closers[i].Close()
	}
}

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newWriters sets up the sinks based on flags and env vars.
func newWriters(cfg *config.SweepConfig, opts writerOptions, log *slog.Logger) (*writerSet, error) {
	ws := &writerSet{}
	var writers []sweep.Writer

	base, err := baseWriter(cfg, opts, log)
	if err != nil {
		return nil, err
	}
	if base != nil {
		writers = append(writers, base)
	}

	if opts.LogFile != "" {
		fw, err := sweep.NewFileWriter(opts.LogFile, opts.LogFile+".points")
		if err != nil {
			return nil, err
		}
		ws.closers = append(ws.closers, fw)
		writers = append(writers, fw)
	}

	if opts.DBPath != "" {
		db, err := store.Open(opts.DBPath)
		if err != nil {
			ws.Close()
			return nil, err
		}
		ws.store = db
		ws.closers = append(ws.closers, db)
		writers = append(writers, db)
	}

	if opts.TUI && !opts.PrintOnly && isTerminal() {
		ws.tui = sweep.NewTUIWriter(cfg)
		ws.closers = append(ws.closers, ws.tui)
		writers = append(writers, ws.tui)
	}

	switch len(writers) {
	case 0:
		ws.writer = sweep.NewJSONStdoutWriter()
	case 1:
		ws.writer = writers[0]
	default:
		ws.writer = sweep.NewMultiWriter(writers...)
	}
	return ws, nil
}

// baseWriter chooses the primary sink: GreptimeDB when configured, otherwise
// STDOUT (colorized on a terminal, JSON when piped). The TUI replaces the
// STDOUT writer.
func baseWriter(cfg *config.SweepConfig, opts writerOptions, log *slog.Logger) (sweep.Writer, error) {
	if opts.PrintOnly {
		return sweep.NewJSONStdoutWriter(), nil
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		log.Info("writing results to GreptimeDB", "endpoint", endpoint)
		return sweep.NewGreptimeDBWriter(endpoint, os.Getenv("GREPTIMEDB_DATABASE"),
			results.TrialTableName, results.PointTableName, log)
	}
	if !isTerminal() {
		return sweep.NewJSONStdoutWriter(), nil
	}
	if opts.TUI {
		return nil, nil
	}
	return sweep.NewColorStdoutWriter(cfg), nil
}
