// Result row structs with greptime tags
package results

import (
	"fmt"
	"os"
	"time"
)

// TrialRow records one simulator invocation.
type TrialRow struct {
	RunID      string    `json:"run_id"`   // TAG
	Modality   string    `json:"modality"` // TAG
	Protocol   string    `json:"protocol"` // TAG
	Nodes      int       `json:"nodes"`    // TAG
	Trial      int       `json:"trial"`    // FIELD
	Seed       int64     `json:"seed"`     // FIELD
	ErrorPct   float64   `json:"error_pct"`
	DelayMs    float64   `json:"delay_ms"`
	JitterMs   float64   `json:"jitter_ms"`
	Failed     bool      `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// Metric names one of the three aggregated outputs.
type Metric string

const (
	MetricErrorPct Metric = "error_pct"
	MetricDelay    Metric = "delay_ms"
	MetricJitter   Metric = "jitter_ms"
)

// Metrics is the plot order; a metric's position + 1 is its file suffix.
var Metrics = []Metric{MetricErrorPct, MetricDelay, MetricJitter}

// Index returns the 1-based figure number of m, or 0 if unknown.
func (m Metric) Index() int {
	for i, x := range Metrics {
		if x == m {
			return i + 1
		}
	}
	return 0
}

// Title is the figure title for m.
func (m Metric) Title() string {
	switch m {
	case MetricErrorPct:
		return "Porcentaje de paquetes erróneos"
	case MetricDelay:
		return "Retardo medio"
	case MetricJitter:
		return "Jitter medio"
	}
	return string(m)
}

// YLabel is the y axis legend for m.
func (m Metric) YLabel() string {
	switch m {
	case MetricErrorPct:
		return "Porcentaje de Paquetes erróneos (%)"
	case MetricDelay:
		return "Retardo medio (ms)"
	case MetricJitter:
		return "Jitter (ms)"
	}
	return string(m)
}

// XLabel is shared by every figure.
const XLabel = "Número de nodos en la sede origen"

// ParseMetric accepts one of the metric names.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value extracts metric m from a trial.
func (r TrialRow) Value(m Metric) float64 {
	switch m {
	case MetricErrorPct:
		return r.ErrorPct
	case MetricDelay:
		return r.DelayMs
	case MetricJitter:
		return r.JitterMs
	}
	return 0
}

// PointRow is the aggregate of one metric over one node-count level.
type PointRow struct {
	RunID     string    `json:"run_id"`
	Modality  string    `json:"modality"`
	Protocol  string    `json:"protocol"`
	Metric    Metric    `json:"metric"`
	Nodes     int       `json:"nodes"`
	Count     int       `json:"count"`
	Mean      float64   `json:"mean"`
	Variance  float64   `json:"variance"`
	HalfWidth float64   `json:"half_width"`
	Timestamp time.Time `json:"ts"`
}

// TrialTableName holds the table name used when writing trials to GreptimeDB.
// It defaults to "sweep_trials" but can be overridden via SWEEP_TRIAL_TABLE.
var TrialTableName = func() string {
	if env := os.Getenv("SWEEP_TRIAL_TABLE"); env != "" {
		return env
	}
	return "sweep_trials"
}()

// PointTableName is the GreptimeDB table for points, overridable via SWEEP_POINT_TABLE.
var PointTableName = func() string {
	if env := os.Getenv("SWEEP_POINT_TABLE"); env != "" {
		return env
	}
	return "sweep_points"
}()

func (TrialRow) TableName() string { return TrialTableName }

func (PointRow) TableName() string { return PointTableName }
