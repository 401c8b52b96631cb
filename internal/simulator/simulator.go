// Package simulator is the boundary to the external network simulator.
// Backends run one scenario and report the three per-run metrics.
package simulator

import (
	"context"
	"fmt"

	"l3vpn-sweep/internal/scenario"
)

// Result holds the metrics of one simulation run.
type Result struct {
	ErrorPct float64 `json:"error_pct"` // percentage of erroneous packets
	DelayMs  float64 `json:"delay_ms"`  // mean one-way delay
	JitterMs float64 `json:"jitter_ms"` // mean jitter
}

// Simulator runs a single scenario to completion.
type Simulator interface {
	Run(ctx context.Context, sc scenario.Scenario) (Result, error)
}

// Func adapts a function to the Simulator interface.
type Func func(ctx context.Context, sc scenario.Scenario) (Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, sc scenario.Scenario) (Result, error) { return f(ctx, sc) }

// TrialError wraps a backend failure with the trial it belongs to.
type TrialError struct {
	Key scenario.Key
	Err error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("simulate %s/%s nodes=%d trial=%d: %v", e.Key.Modality, e.Key.Protocol, e.Key.Nodes, e.Key.Trial, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }
