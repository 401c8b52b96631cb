package store_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/scenario"
	"l3vpn-sweep/internal/simulator"
	"l3vpn-sweep/internal/store"
	"l3vpn-sweep/internal/sweep"
)

func openTemp(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db", "sweep.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndQueryTrials(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.BeginRun(ctx, "r1", config.Default(), ts); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	rows := []results.TrialRow{
		{RunID: "r1", Modality: "mod1", Protocol: "csma", Nodes: 10, Trial: 0, Seed: 1, ErrorPct: 1.5, DelayMs: 210, JitterMs: 3, Timestamp: ts},
		{RunID: "r1", Modality: "mod1", Protocol: "csma", Nodes: 10, Trial: 1, Seed: 2, Failed: true, Error: "exit status 1", Timestamp: ts},
	}
	if err := s.WriteTrials(rows); err != nil {
		t.Fatalf("WriteTrials: %v", err)
	}
	if err := s.WriteTrial(results.TrialRow{RunID: "other", Modality: "mod1", Protocol: "wifi", Nodes: 10, Timestamp: ts}); err != nil {
		t.Fatalf("WriteTrial: %v", err)
	}

	got, err := s.Trials(ctx, "r1")
	if err != nil {
		t.Fatalf("Trials: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(got))
	}
	if got[0].DelayMs != 210 || got[0].Seed != 1 || !got[0].Timestamp.Equal(ts) {
		t.Errorf("unexpected first trial: %+v", got[0])
	}
	if !got[1].Failed || got[1].Error != "exit status 1" {
		t.Errorf("failure not stored: %+v", got[1])
	}

	if err := s.FinishRun(ctx, "r1", ts.Add(time.Minute), nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Trials != 2 || runs[0].Failed != 1 || runs[0].FinishedAt.IsZero() {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestWritePoints(t *testing.T) {
	s := openTemp(t)
	pts := []results.PointRow{
		{RunID: "r", Modality: "mod2", Protocol: "wifi", Metric: results.MetricJitter, Nodes: 40, Count: 10, Mean: 2.5, Variance: 0.25, HalfWidth: 0.3577, Timestamp: time.Now()},
	}
	if err := s.WritePoints(pts); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}
	// rewriting the same key replaces it
	pts[0].Mean = 3
	if err := s.WritePoint(pts[0]); err != nil {
		t.Fatalf("WritePoint: %v", err)
	}
	got, err := s.Points(context.Background(), "r")
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	if len(got) != 1 || got[0].Metric != results.MetricJitter || got[0].Mean != 3 || got[0].Count != 10 {
		t.Errorf("unexpected points: %+v", got)
	}
}

func TestLatestRunAndConfig(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if _, err := s.LatestRun(ctx); !errors.Is(err, store.ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}

	cfg := config.Default()
	cfg.Grid.Trials = 4
	cfg.Modalities = cfg.Modalities[:1]
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, "old", nil, base); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRun(ctx, "new", cfg, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishRun(ctx, "new", base.Add(2*time.Hour), errors.New("interrupted")); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "new" || latest.Error != "interrupted" {
		t.Errorf("unexpected latest run: %+v", latest)
	}

	got, err := s.RunConfig(ctx, "new")
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}
	if got.Grid.Trials != 4 || len(got.Modalities) != 1 || got.Modalities[0].Name != "mod1" {
		t.Errorf("config not restored: %+v", got)
	}
	if got, err := s.RunConfig(ctx, "old"); err != nil || got != nil {
		t.Errorf("expected nil config for old run, got %v %v", got, err)
	}
	if _, err := s.RunConfig(ctx, "missing"); err == nil {
		t.Errorf("expected error for missing run")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteTrial(results.TrialRow{RunID: "r", Modality: "mod1", Protocol: "csma", Nodes: 10, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Trials(context.Background(), "r")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected 1 trial after reopen, got %d (%v)", len(got), err)
	}
}

func TestSweepIntoStoreReplots(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	cfg := config.Default()
	cfg.Grid = scenario.Grid{MinNodes: 10, MaxNodes: 20, NodeStep: 10, Trials: 3}

	sim := simulator.Func(func(_ context.Context, sc scenario.Scenario) (simulator.Result, error) {
		return simulator.Result{
			ErrorPct: float64(sc.Trial),
			DelayMs:  float64(sc.Nodes) + float64(sc.ModalityIndex),
			JitterMs: float64(sc.Trial * sc.Nodes),
		}, nil
	})
	r := sweep.NewRunner(cfg, sim, s, logging.Discard())
	if err := s.BeginRun(ctx, r.RunID(), cfg, time.Now()); err != nil {
		t.Fatal(err)
	}
	live, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.FinishRun(ctx, r.RunID(), time.Now(), nil); err != nil {
		t.Fatal(err)
	}

	trials, err := s.Trials(ctx, r.RunID())
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != cfg.TotalTrials() {
		t.Fatalf("stored %d trials, want %d", len(trials), cfg.TotalTrials())
	}
	points, err := s.Points(ctx, r.RunID())
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(live.Points) {
		t.Fatalf("stored %d points, want %d", len(points), len(live.Points))
	}

	stored, err := s.RunConfig(ctx, r.RunID())
	if err != nil {
		t.Fatal(err)
	}
	replayed, err := sweep.Aggregate(trials, stored)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if render(t, live) != render(t, replayed) {
		t.Errorf("replot from the store differs from the live plots")
	}
}

func render(t *testing.T, rep *sweep.Report) string {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range rep.Pages {
		for _, f := range p.Figures {
			if _, err := f.WriteTo(&buf); err != nil {
				t.Fatal(err)
			}
		}
	}
	return buf.String()
}
