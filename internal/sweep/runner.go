// Runner orchestrating the modality x protocol x level x trial sweep
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/scenario"
	"l3vpn-sweep/internal/simulator"
	"l3vpn-sweep/internal/units"
)

// Progress is a snapshot of a running sweep.
type Progress struct {
	RunID    string             `json:"run_id"`
	Total    int                `json:"total"`
	Done     int                `json:"done"`
	Failed   int                `json:"failed"`
	Modality string             `json:"modality"`
	Protocol string             `json:"protocol"`
	Nodes    int                `json:"nodes"`
	Started  time.Time          `json:"started"`
	Finished bool               `json:"finished"`
	Err      string             `json:"error,omitempty"`
	Points   []results.PointRow `json:"points"`
}

// Runner drives the simulator over the whole parameter grid.
type Runner struct {
	cfg    *config.SweepConfig
	sim    simulator.Simulator
	writer Writer
	log    *slog.Logger
	runID  string
	now    func() time.Time

	mu       sync.Mutex
	progress Progress
}

// NewRunner creates a runner. A nil writer discards rows and a nil logger
// falls back to the one stored in the run context.
func NewRunner(cfg *config.SweepConfig, sim simulator.Simulator, w Writer, log *slog.Logger) *Runner {
	if w == nil {
		w = discardWriter{}
	}
	id := uuid.NewString()
	return &Runner{
		cfg:      cfg,
		sim:      sim,
		writer:   w,
		log:      log,
		runID:    id,
		now:      time.Now,
		progress: Progress{RunID: id, Total: cfg.TotalTrials()},
	}
}

// RunID identifies this sweep in every row it writes.
func (r *Runner) RunID() string { return r.runID }

// SetRunID overrides the generated run identifier.
func (r *Runner) SetRunID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = id
	r.progress.RunID = id
}

// Progress returns a copy of the current progress.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	p.Points = append([]results.PointRow(nil), r.progress.Points...)
	return p
}

// Run executes the sweep and returns the report built so far. On error the
// report holds every level completed before the failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	log := r.log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	ctx = logging.NewContext(ctx, log)
	cfg := r.cfg

	traffic, err := cfg.TrafficParams()
	if err != nil {
		return nil, err
	}
	csma, err := cfg.CSMALink()
	if err != nil {
		return nil, err
	}
	wifi, err := cfg.WifiLink()
	if err != nil {
		return nil, err
	}
	levels := cfg.Grid.NodeCounts()
	if len(levels) == 0 {
		return nil, fmt.Errorf("grid: no node-count levels")
	}

	r.mu.Lock()
	r.progress.Started = r.now()
	r.mu.Unlock()

	log.Info("sweep parameters",
		"run_id", r.runID,
		"ton", units.FormatDuration(traffic.TOn),
		"toff", units.FormatDuration(traffic.TOff),
		"size_pkt", fmt.Sprintf("%dB", traffic.PacketSize),
		"data_rate", units.FormatDataRate(traffic.DataRate),
		"csma_perror", csma.ErrorRate,
		"csma_data_rate", csma.DataRate,
		"csma_delay", csma.Delay,
		"wifi_mode", wifi.Mode,
		"site2_nodes", cfg.Site2Nodes,
		"levels", len(levels),
		"trials", cfg.Grid.Trials,
		"total", cfg.TotalTrials(),
	)

	b := newBuilder(r.runID, cfg, cfg.Modalities, cfg.Output.Terminal)
	err = r.sweep(ctx, log, b, traffic, csma, wifi, levels)

	r.mu.Lock()
	r.progress.Finished = true
	if err != nil {
		r.progress.Err = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		return b.report, err
	}
	log.Info("sweep finished", "run_id", r.runID, "trials", b.report.Trials, "failed", b.report.Failed, "points", len(b.report.Points))
	return b.report, nil
}

func (r *Runner) sweep(ctx context.Context, log *slog.Logger, b *builder, traffic scenario.Traffic, csma scenario.CSMALink, wifi scenario.WifiLink, levels []int) error {
	cfg := r.cfg
	seq := 0
	for mi, mod := range cfg.Modalities {
		log.Debug("modality",
			"index", mi+1,
			"name", mod.Name,
			"p2p_perror", mod.BitErrorRate,
			"p2p_data_rate", mod.DataRate,
			"p2p_delay", mod.Delay,
		)
		for _, p := range scenario.Protocols {
			log.Debug("protocol", "protocol", p.Title())
			for _, nodes := range levels {
				if err := ctx.Err(); err != nil {
					return err
				}
				log.Debug("level", "modality", mod.Name, "protocol", p, "nodes", nodes)
				r.setCurrent(mod.Name, p, nodes)
				base := scenario.Scenario{
					Modality:      mod,
					ModalityIndex: mi,
					Protocol:      p,
					Nodes:         nodes,
					Site2Nodes:    cfg.Site2Nodes,
					Traffic:       traffic,
					CSMA:          csma,
					Wifi:          wifi,
					Seed:          cfg.Seed + int64(seq),
				}
				seq += cfg.Grid.Trials
				trials, err := r.runLevel(ctx, log, base)
				if err != nil {
					return err
				}
				points := b.level(mi, mod, p, nodes, trials, r.now())
				r.addPoints(points)
				if err := WritePoints(r.writer, points); err != nil {
					return fmt.Errorf("write points: %w", err)
				}
			}
		}
	}
	return nil
}

// runLevel runs the trials of one level with at most cfg.Parallel in flight.
// Rows are written in trial order as soon as every earlier trial is done.
func (r *Runner) runLevel(ctx context.Context, log *slog.Logger, base scenario.Scenario) ([]results.TrialRow, error) {
	n := r.cfg.Grid.Trials
	rows := make([]results.TrialRow, n)
	ran := make([]bool, n)
	completed := make(chan int, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Parallel, 1))
	go func() {
		for i := 0; i < n; i++ {
			sc := base
			sc.Trial = i
			sc.Seed = base.Seed + int64(i)
			g.Go(func() error {
				defer func() { completed <- sc.Trial }()
				if gctx.Err() != nil {
					return nil
				}
				row, err := r.runTrial(gctx, log, sc)
				rows[sc.Trial] = row
				ran[sc.Trial] = true
				if err != nil && !r.cfg.ContinueOnError {
					return err
				}
				return nil
			})
		}
	}()

	var writeErr error
	done := make([]bool, n)
	next := 0
	for range n {
		i := <-completed
		done[i] = true
		for next < n && done[next] {
			if ran[next] && writeErr == nil {
				if err := r.writer.WriteTrial(rows[next]); err != nil {
					writeErr = fmt.Errorf("write trial: %w", err)
				}
			}
			next++
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if writeErr != nil {
		return nil, writeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Runner) runTrial(ctx context.Context, log *slog.Logger, sc scenario.Scenario) (results.TrialRow, error) {
	log.Debug("trial", "protocol", sc.Protocol, "nodes", sc.Nodes, "trial", sc.Trial, "seed", sc.Seed)
	start := time.Now()
	res, err := r.sim.Run(ctx, sc)
	row := results.TrialRow{
		RunID:      r.runID,
		Modality:   sc.Modality.Name,
		Protocol:   string(sc.Protocol),
		Nodes:      sc.Nodes,
		Trial:      sc.Trial,
		Seed:       sc.Seed,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:  r.now(),
	}
	if err != nil {
		var te *simulator.TrialError
		if !errors.As(err, &te) {
			err = &simulator.TrialError{Key: sc.Key(), Err: err}
		}
		row.Failed = true
		row.Error = err.Error()
		r.countTrial(true)
		if r.cfg.ContinueOnError && ctx.Err() == nil {
			log.Warn("trial failed, skipping", "modality", sc.Modality.Name, "protocol", sc.Protocol, "nodes", sc.Nodes, "trial", sc.Trial, "err", err)
		}
		return row, err
	}
	row.ErrorPct = res.ErrorPct
	row.DelayMs = res.DelayMs
	row.JitterMs = res.JitterMs
	r.countTrial(false)
	log.Debug("trial result", "nodes", sc.Nodes, "trial", sc.Trial, "error_pct", res.ErrorPct, "delay_ms", res.DelayMs, "jitter_ms", res.JitterMs)
	return row, nil
}

func (r *Runner) setCurrent(mod string, p scenario.Protocol, nodes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Modality = mod
	r.progress.Protocol = string(p)
	r.progress.Nodes = nodes
}

func (r *Runner) countTrial(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Done++
	if failed {
		r.progress.Failed++
	}
}

func (r *Runner) addPoints(points []results.PointRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Points = append(r.progress.Points, points...)
}
