package orchestration

import (
	"io"
	"sync"
	"time"

	"github.com/agbru/heatcalc/internal/grid"
)

// State is the lifecycle state of a worker's solver.
type State int

const (
	// Running means the solver has not met either stop condition yet.
	Running State = iota
	// Converged means the global scalar fell below epsilon.
	Converged
	// Stopped means the iteration cap was reached without converging.
	Stopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Converged:
		return "Converged"
	case Stopped:
		return "Stopped"
	default:
		return "Running"
	}
}

// Result is the outcome of one worker's solve.
type Result struct {
	// Rank of the worker.
	Rank int
	// Iterations is the number of completed iterations.
	Iterations int
	// Residual is the global convergence scalar of the last iteration.
	Residual float64
	// State is Converged or Stopped on success.
	State State
	// Duration is the wall time of the solve.
	Duration time.Duration
	// HaloWait is the total time spent blocked on ghost-row messages.
	HaloWait time.Duration
	// ReduceWait is the total time spent in the global reduction.
	ReduceWait time.Duration
	// Err is set when the worker failed.
	Err error
}

// Converged reports whether the worker stopped because it converged.
func (r Result) Converged() bool { return r.State == Converged }

// ProgressUpdate is one diagnostics event emitted by a worker.
type ProgressUpdate struct {
	Rank      int
	Iteration int
	Residual  float64
	// Fraction is an estimate of overall completion in [0, 1].
	Fraction float64
	// Final is set on the last update a worker sends.
	Final bool
}

// Outcome summarizes a successful cohort run for presentation.
type Outcome struct {
	Iterations int
	Residual   float64
	State      State
	Duration   time.Duration
	// Field is the assembled global field; nil for multi-process runs where
	// each process only holds its own band.
	Field *grid.Field
	// Probe holds the diagnostic diagonal near the bottom-right corner.
	Probe []grid.ProbePoint
}

// PresentationOptions configures how results are presented to the user.
type PresentationOptions struct {
	Rows          int
	Cols          int
	Workers       int
	Epsilon       float64
	MaxIterations int
	Verbose       bool
	Details       bool
}

// ProgressReporter defines the interface for displaying solver progress.
// This interface decouples the orchestration layer from the presentation
// layer.
type ProgressReporter interface {
	// DisplayProgress consumes updates until progressChan is closed and then
	// calls wg.Done.
	//
	// Parameters:
	//   - wg: A WaitGroup to signal when display is complete.
	//   - progressChan: Channel receiving progress updates from workers.
	//   - numWorkers: The number of workers being tracked.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numWorkers int, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numWorkers int, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, numWorkers int, out io.Writer) {
	f(wg, progressChan, numWorkers, out)
}

// NullProgressReporter is a no-op implementation of ProgressReporter.
// It drains the progress channel without displaying anything.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, _ int, _ io.Writer) {
	defer wg.Done()
	DrainChannel(progressChan)
}

// ResultPresenter defines the interface for presenting solve results.
type ResultPresenter interface {
	// PresentWorkerTable displays the per-worker summary table.
	PresentWorkerTable(results []Result, out io.Writer)
	// PresentOutcome displays the final status of the solve.
	PresentOutcome(outcome Outcome, opts PresentationOptions, out io.Writer)
	ErrorHandler
}

// DurationFormatter formats durations for display.
type DurationFormatter interface {
	FormatDuration(d time.Duration) string
}

// ErrorHandler handles solve errors and returns exit codes.
type ErrorHandler interface {
	HandleError(err error, duration time.Duration, out io.Writer) int
}
