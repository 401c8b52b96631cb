package sweep

import (
	"fmt"
	"sort"
	"time"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/plot"
	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/scenario"
	"l3vpn-sweep/internal/stats"
)

// Report is the outcome of a sweep: one plot page per modality plus every point.
type Report struct {
	RunID  string
	Pages  []plot.Page
	Points []results.PointRow
	Trials int
	Failed int
}

// builder folds levels into figures. Datasets are attached to their figure on
// creation, so every protocol appears in every figure even without points.
type builder struct {
	cfg    *config.SweepConfig
	report *Report
	sets   map[setKey][]*plot.Dataset
}

type setKey struct {
	modality int
	protocol scenario.Protocol
}

func newBuilder(runID string, cfg *config.SweepConfig, modalities []scenario.Modality, terminal string) *builder {
	b := &builder{
		cfg:    cfg,
		report: &Report{RunID: runID},
		sets:   make(map[setKey][]*plot.Dataset),
	}
	for mi, mod := range modalities {
		page := plot.Page{Modality: mod.Name, Index: mi + 1}
		for _, m := range results.Metrics {
			page.Figures = append(page.Figures, &plot.Figure{
				Title:    m.Title(),
				XLabel:   results.XLabel,
				YLabel:   m.YLabel(),
				Terminal: terminal,
			})
		}
		for _, p := range scenario.Protocols {
			sets := make([]*plot.Dataset, len(results.Metrics))
			for k := range results.Metrics {
				sets[k] = plot.NewDataset(p.Title())
				page.Figures[k].AddDataset(sets[k])
			}
			b.sets[setKey{mi, p}] = sets
		}
		b.report.Pages = append(b.report.Pages, page)
	}
	return b
}

// level aggregates the trials of one node-count level, in the order given.
// Failed trials are skipped; a metric without samples yields no point.
func (b *builder) level(mi int, mod scenario.Modality, p scenario.Protocol, nodes int, trials []results.TrialRow, ts time.Time) []results.PointRow {
	var acc [3]stats.Average
	for _, t := range trials {
		b.report.Trials++
		if t.Failed {
			b.report.Failed++
			continue
		}
		for k, m := range results.Metrics {
			acc[k].Update(t.Value(m))
		}
	}
	sets := b.sets[setKey{mi, p}]
	var points []results.PointRow
	for k, m := range results.Metrics {
		n := acc[k].Count()
		if n == 0 {
			continue
		}
		hw := stats.ConfidenceHalfWidth(b.cfg.TValue(n), acc[k].Var(), n)
		sets[k].Add(float64(nodes), acc[k].Mean(), hw)
		points = append(points, results.PointRow{
			RunID:     b.report.RunID,
			Modality:  mod.Name,
			Protocol:  string(p),
			Metric:    m,
			Nodes:     nodes,
			Count:     n,
			Mean:      acc[k].Mean(),
			Variance:  acc[k].Var(),
			HalfWidth: hw,
			Timestamp: ts,
		})
	}
	b.report.Points = append(b.report.Points, points...)
	return points
}

// Aggregate rebuilds a report from stored trials without running anything.
// Only modalities present in the trials get a page, ordered as in cfg and then
// by first appearance; levels are the node counts present in the trials.
func Aggregate(trials []results.TrialRow, cfg *config.SweepConfig) (*Report, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("no trials to aggregate")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	present := make(map[string]bool)
	var extra []scenario.Modality
	for _, t := range trials {
		if present[t.Modality] {
			continue
		}
		present[t.Modality] = true
		extra = append(extra, scenario.Modality{Name: t.Modality})
	}
	var modalities []scenario.Modality
	for _, m := range cfg.Modalities {
		if present[m.Name] {
			modalities = append(modalities, m)
			delete(present, m.Name)
		}
	}
	for _, m := range extra {
		if present[m.Name] {
			modalities = append(modalities, m)
		}
	}

	type levelKey struct {
		modality string
		protocol scenario.Protocol
		nodes    int
	}
	groups := make(map[levelKey][]results.TrialRow)
	nodeSet := make(map[int]bool)
	var stamp time.Time
	for _, t := range trials {
		k := levelKey{t.Modality, scenario.Protocol(t.Protocol), t.Nodes}
		groups[k] = append(groups[k], t)
		nodeSet[t.Nodes] = true
		if t.Timestamp.After(stamp) {
			stamp = t.Timestamp
		}
	}
	levels := make([]int, 0, len(nodeSet))
	for n := range nodeSet {
		levels = append(levels, n)
	}
	sort.Ints(levels)

	b := newBuilder(trials[0].RunID, cfg, modalities, cfg.Output.Terminal)
	for mi, mod := range modalities {
		for _, p := range scenario.Protocols {
			for _, nodes := range levels {
				rows := groups[levelKey{mod.Name, p, nodes}]
				if len(rows) == 0 {
					continue
				}
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].Trial < rows[j].Trial })
				b.level(mi, mod, p, nodes, rows, stamp)
			}
		}
	}
	return b.report, nil
}
