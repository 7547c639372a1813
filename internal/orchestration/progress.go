package orchestration

import (
	"math"
	"time"

	"github.com/agbru/heatcalc/internal/convergence"
	"github.com/agbru/heatcalc/internal/format"
)

// FractionEstimator turns (iteration, residual) pairs into a completion
// estimate. Jacobi residuals decay roughly geometrically, so progress
// toward epsilon is measured on a log scale from the first residual seen;
// progress toward the iteration cap is linear. The larger of the two wins.
type FractionEstimator struct {
	Criterion convergence.Criterion
	reference float64
}

// Estimate returns the completion fraction in [0, 1].
func (e *FractionEstimator) Estimate(iteration int, residual float64) float64 {
	capFraction := 0.0
	if e.Criterion.MaxIterations > 0 {
		capFraction = float64(iteration) / float64(e.Criterion.MaxIterations)
	}
	if e.Criterion.Decide(iteration, residual) != convergence.Continue {
		return 1
	}
	if e.reference == 0 && residual > 0 && !math.IsInf(residual, 0) {
		e.reference = residual
	}
	logFraction := 0.0
	if e.reference > e.Criterion.Epsilon && residual > 0 {
		logFraction = math.Log(e.reference/residual) / math.Log(e.reference/e.Criterion.Epsilon)
	}
	return min(max(capFraction, logFraction, 0), 1)
}

// ProgressAggregator manages multi-worker progress aggregation. It wraps
// format.ProgressWithETA and remembers the latest update of each worker.
// Both CLI and TUI use this to avoid duplicating the aggregation logic.
type ProgressAggregator struct {
	state      *format.ProgressWithETA
	numWorkers int
	latest     []ProgressUpdate
}

// NewProgressAggregator creates a new aggregator for the given number of
// workers. Returns nil if numWorkers <= 0.
func NewProgressAggregator(numWorkers int) *ProgressAggregator {
	if numWorkers <= 0 {
		return nil
	}
	return &ProgressAggregator{
		state:      format.NewProgressWithETA(numWorkers),
		numWorkers: numWorkers,
		latest:     make([]ProgressUpdate, numWorkers),
	}
}

// AggregatedProgress holds the result of processing a single update.
type AggregatedProgress struct {
	// Rank is the worker that sent the update.
	Rank int
	// Iteration is the worker's latest completed iteration.
	Iteration int
	// Residual is the global scalar reported with the update.
	Residual float64
	// Value is the worker's completion fraction.
	Value float64
	// AverageProgress is the mean fraction across workers.
	AverageProgress float64
	// ETA is the estimated time remaining.
	ETA time.Duration
}

// Update processes a single progress update and returns the aggregated
// result.
func (a *ProgressAggregator) Update(update ProgressUpdate) AggregatedProgress {
	if update.Rank >= 0 && update.Rank < a.numWorkers {
		a.latest[update.Rank] = update
	}
	avg, eta := a.state.UpdateWithETA(update.Rank, update.Fraction)
	return AggregatedProgress{
		Rank:            update.Rank,
		Iteration:       update.Iteration,
		Residual:        update.Residual,
		Value:           update.Fraction,
		AverageProgress: avg,
		ETA:             eta,
	}
}

// Latest returns the most recent update received from rank.
func (a *ProgressAggregator) Latest(rank int) ProgressUpdate {
	if rank < 0 || rank >= a.numWorkers {
		return ProgressUpdate{}
	}
	return a.latest[rank]
}

// CalculateAverage returns the current average progress without updating.
func (a *ProgressAggregator) CalculateAverage() float64 {
	return a.state.CalculateAverage()
}

// GetETA returns the current ETA estimate without updating.
func (a *ProgressAggregator) GetETA() time.Duration {
	return a.state.GetETA()
}

// NumWorkers returns the number of workers being tracked.
func (a *ProgressAggregator) NumWorkers() int {
	return a.numWorkers
}

// IsMultiWorker returns true if tracking more than one worker.
func (a *ProgressAggregator) IsMultiWorker() bool {
	return a.numWorkers > 1
}

// DrainChannel reads all updates from the channel without processing.
func DrainChannel(progressChan <-chan ProgressUpdate) {
	for range progressChan {
	}
}
