// Package convergence computes the global convergence scalar and decides
// when the relaxation stops.
package convergence

import (
	"context"
	"time"

	"github.com/agbru/heatcalc/internal/comm"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/stencil"
)

// Default stop criterion.
const (
	DefaultEpsilon       = 0.01
	DefaultMaxIterations = 4000
)

// Reducer combines the per-worker maximum change into the global scalar.
type Reducer struct {
	comm   comm.Communicator
	kernel stencil.Kernel
}

// NewReducer returns a reducer scanning with k and reducing over c.
func NewReducer(c comm.Communicator, k stencil.Kernel) *Reducer {
	return &Reducer{comm: c, kernel: k}
}

// LocalMax returns the largest |current - previous| over the worker's owned
// interior cells.
func (r *Reducer) LocalMax(current, previous *grid.Field) float64 {
	return r.kernel.MaxDelta(current, previous)
}

// Reduce returns the maximum of local over every worker along with the time
// spent in the collective. Every worker must call it exactly once per
// iteration.
func (r *Reducer) Reduce(ctx context.Context, local float64) (float64, time.Duration, error) {
	start := time.Now()
	global, err := r.comm.AllreduceMax(ctx, local)
	return global, time.Since(start), err
}

// Status is the outcome of the stop test for one iteration.
type Status int

const (
	// Continue means neither stop condition holds.
	Continue Status = iota
	// Converged means the global scalar fell below epsilon.
	Converged
	// CapReached means the iteration cap was hit first.
	CapReached
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case CapReached:
		return "cap-reached"
	default:
		return "continue"
	}
}

// Criterion is the stop rule. It only ever sees the globally reduced
// scalar, so every worker reaches the same decision on the same iteration.
type Criterion struct {
	Epsilon       float64
	MaxIterations int
}

// DefaultCriterion returns the 0.01 / 4000 rule.
func DefaultCriterion() Criterion {
	return Criterion{Epsilon: DefaultEpsilon, MaxIterations: DefaultMaxIterations}
}

// Decide applies the rule after iteration (1-based) produced residual.
// Convergence takes precedence when both conditions hold. A NaN residual
// never converges.
func (c Criterion) Decide(iteration int, residual float64) Status {
	if residual < c.Epsilon {
		return Converged
	}
	if iteration >= c.MaxIterations {
		return CapReached
	}
	return Continue
}
