package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/results"
)

// ErrNoRuns is returned by LatestRun on an empty database.
var ErrNoRuns = errors.New("no sweep runs stored")

// Run summarizes one stored sweep.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running or after a crash
	Trials     int
	Failed     int
	Error      string
}

// SQLite stores sweep results. It implements the sweep writer interfaces,
// including the batch variants.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// BeginRun records the start of a sweep together with its configuration.
func (s *SQLite) BeginRun(ctx context.Context, runID string, cfg *config.SweepConfig, started time.Time) error {
	var cfgText string
	if cfg != nil {
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		cfgText = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, config) VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET started_at = excluded.started_at, config = excluded.config`,
		runID, formatTime(started), cfgText)
	if err != nil {
		return fmt.Errorf("failed to begin run %s: %w", runID, err)
	}
	return nil
}

// FinishRun marks a sweep as finished. runErr is stored when non-nil.
func (s *SQLite) FinishRun(ctx context.Context, runID string, finished time.Time, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, error = ?,
		    trials = (SELECT COUNT(*) FROM trials WHERE run_id = ?),
		    failed = (SELECT COUNT(*) FROM trials WHERE run_id = ? AND failed = 1)
		WHERE run_id = ?`,
		formatTime(finished), msg, runID, runID, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	return nil
}

// WriteTrial implements sweep.TrialWriter.
func (s *SQLite) WriteTrial(row results.TrialRow) error {
	return s.WriteTrials([]results.TrialRow{row})
}

// WriteTrials inserts rows in one transaction.
func (s *SQLite) WriteTrials(rows []results.TrialRow) error {
	return s.inTx(context.Background(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO trials
			    (run_id, modality, protocol, nodes, trial, seed, error_pct, delay_ms, jitter_ms, failed, error, duration_ms, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.Exec(r.RunID, r.Modality, r.Protocol, r.Nodes, r.Trial, r.Seed,
				r.ErrorPct, r.DelayMs, r.JitterMs, r.Failed, r.Error, r.DurationMs, formatTime(r.Timestamp)); err != nil {
				return fmt.Errorf("failed to insert trial %s/%s/%d/%d: %w", r.Modality, r.Protocol, r.Nodes, r.Trial, err)
			}
		}
		return nil
	})
}

// WritePoint implements sweep.PointWriter.
func (s *SQLite) WritePoint(row results.PointRow) error {
	return s.WritePoints([]results.PointRow{row})
}

// WritePoints inserts rows in one transaction.
func (s *SQLite) WritePoints(rows []results.PointRow) error {
	return s.inTx(context.Background(), func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO points
			    (run_id, modality, protocol, metric, nodes, count, mean, variance, half_width, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.Exec(r.RunID, r.Modality, r.Protocol, string(r.Metric), r.Nodes,
				r.Count, r.Mean, r.Variance, r.HalfWidth, formatTime(r.Timestamp)); err != nil {
				return fmt.Errorf("failed to insert point: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Trials returns the stored trials of a run ordered by insertion.
func (s *SQLite) Trials(ctx context.Context, runID string) ([]results.TrialRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, modality, protocol, nodes, trial, seed, error_pct, delay_ms, jitter_ms, failed, error, duration_ms, ts
		FROM trials WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var out []results.TrialRow
	for rows.Next() {
		var r results.TrialRow
		var errText sql.NullString
		var ts string
		if err := rows.Scan(&r.RunID, &r.Modality, &r.Protocol, &r.Nodes, &r.Trial, &r.Seed,
			&r.ErrorPct, &r.DelayMs, &r.JitterMs, &r.Failed, &errText, &r.DurationMs, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		r.Error = errText.String
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Points returns the stored points of a run.
func (s *SQLite) Points(ctx context.Context, runID string) ([]results.PointRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, modality, protocol, metric, nodes, count, mean, variance, half_width, ts
		FROM points WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var out []results.PointRow
	for rows.Next() {
		var r results.PointRow
		var metric, ts string
		if err := rows.Scan(&r.RunID, &r.Modality, &r.Protocol, &metric, &r.Nodes,
			&r.Count, &r.Mean, &r.Variance, &r.HalfWidth, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		r.Metric = results.Metric(metric)
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists stored sweeps, newest first.
func (s *SQLite) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, r.finished_at, r.error,
		    (SELECT COUNT(*) FROM trials t WHERE t.run_id = r.run_id),
		    (SELECT COUNT(*) FROM trials t WHERE t.run_id = r.run_id AND t.failed = 1)
		FROM runs r ORDER BY r.started_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var finished, errText sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &errText, &r.Trials, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			r.FinishedAt = parseTime(finished.String)
		}
		r.Error = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the most recently started sweep.
func (s *SQLite) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// RunConfig returns the configuration a run was started with, or nil when
// none was recorded.
func (s *SQLite) RunConfig(ctx context.Context, runID string) (*config.SweepConfig, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT config FROM runs WHERE run_id = ?`, runID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if text.String == "" {
		return nil, nil
	}
	cfg := config.Default()
	if err := yaml.Unmarshal([]byte(text.String), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config of run %s: %w", runID, err)
	}
	return cfg, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
