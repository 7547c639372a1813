package orchestration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/heatcalc/internal/comm"
	"github.com/agbru/heatcalc/internal/convergence"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
)

// ProgressBufferMultiplier defines the buffer size multiplier for the
// progress channel. A larger buffer reduces the likelihood of blocking
// workers when the UI is slow to consume updates.
const ProgressBufferMultiplier = 5

// probeLength is the number of diagonal cells sampled for diagnostics.
const probeLength = 6

// CohortResult is the outcome of an in-process cohort.
type CohortResult struct {
	// Results holds one entry per worker, indexed by rank.
	Results []Result
	// Field is the assembled global field of the latest iteration. It is
	// nil when any worker failed.
	Field *grid.Field
	// Probe is the diagnostic diagonal of the last band.
	Probe []grid.ProbePoint
}

// Failed reports whether any worker returned an error.
func (c CohortResult) Failed() bool {
	for _, r := range c.Results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// ExecuteCohort runs problem.Workers workers as goroutines connected by a
// comm.LocalWorld. Workers share no field memory: ghost rows and the
// convergence scalar travel as messages only.
//
// Every worker's configuration is validated before the first goroutine
// starts, so a ConfigError is returned without any iteration having run.
// A failure in one worker cancels the others.
//
// Parameters:
//   - ctx: The context for cancellation and deadlines.
//   - problem: The global domain and stop rule.
//   - opts: Per-worker options; the progress hook, when set, is called in
//     addition to the reporter.
//   - progressReporter: Displays progress updates (use NullProgressReporter
//     for quiet mode).
//   - out: The io.Writer for progress output.
//
// Returns:
//   - CohortResult: Per-worker results and the assembled field.
//   - error: The first worker error, or a ConfigError.
func ExecuteCohort(ctx context.Context, problem Problem, opts Options, progressReporter ProgressReporter, out io.Writer) (CohortResult, error) {
	if problem.Workers < 1 {
		return CohortResult{}, apperrors.NewConfigError("worker count must be positive, got %d", problem.Workers)
	}
	n := problem.Workers
	world := comm.NewLocalWorld(n)
	defer world.Close()

	g, gctx := errgroup.WithContext(ctx)
	progressChan := make(chan ProgressUpdate, n*ProgressBufferMultiplier)

	solvers := make([]*Solver, n)
	for rank := 0; rank < n; rank++ {
		wopts := opts
		wopts.ProgressHook = forwardProgress(gctx, progressChan, problem, opts.ProgressHook)
		s, err := NewSolver(world.Comm(rank), problem, wopts)
		if err != nil {
			closeSolvers(solvers)
			return CohortResult{}, err
		}
		solvers[rank] = s
	}
	defer closeSolvers(solvers)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go progressReporter.DisplayProgress(&displayWg, progressChan, n, out)

	results := make([]Result, n)
	for rank, s := range solvers {
		rank, s := rank, s
		g.Go(func() error {
			res, err := runTraced(gctx, s)
			results[rank] = res
			return err
		})
	}

	err := g.Wait()
	close(progressChan)
	displayWg.Wait()

	cohort := CohortResult{Results: results}
	if err != nil {
		return cohort, err
	}
	grids := make([]*grid.Grid, n)
	for rank, s := range solvers {
		grids[rank] = s.Grid()
	}
	field, err := grid.Assemble(grids)
	if err != nil {
		return cohort, err
	}
	cohort.Field = field
	cohort.Probe = solvers[n-1].Grid().Probe(probeLength)
	return cohort, nil
}

// forwardProgress builds the hook installed on every worker: it publishes
// a ProgressUpdate on ch and then calls the user hook, if any.
func forwardProgress(ctx context.Context, ch chan<- ProgressUpdate, problem Problem, user ProgressHook) ProgressHook {
	est := &FractionEstimator{Criterion: problem.Criterion}
	return func(iteration int, residual float64, rank int) {
		final := problem.Criterion.Decide(iteration, residual) != convergence.Continue
		update := ProgressUpdate{
			Rank:      rank,
			Iteration: iteration,
			Residual:  residual,
			Fraction:  est.Estimate(iteration, residual),
			Final:     final,
		}
		select {
		case ch <- update:
		case <-ctx.Done():
		}
		if user != nil {
			user(iteration, residual, rank)
		}
	}
}

func closeSolvers(solvers []*Solver) {
	for _, s := range solvers {
		if s != nil {
			s.Close()
		}
	}
}

// AnalyzeResults checks the per-worker results for consistency and
// presents the outcome.
//
// Every worker evaluates the stop rule on the same reduced scalar, so a
// healthy cohort reports identical iteration counts, scalars and states.
// Any disagreement means the cohort lost synchronization and is reported
// as a critical error.
//
// Parameters:
//   - cohort: The results to analyze.
//   - opts: Presentation settings.
//   - presenter: The result presenter for display formatting.
//   - out: The io.Writer for the summary report.
//
// Returns:
//   - int: An exit code; ExitErrorNotConverged when the cap was reached.
func AnalyzeResults(cohort CohortResult, opts PresentationOptions, presenter ResultPresenter, out io.Writer) int {
	results := make([]Result, len(cohort.Results))
	copy(results, cohort.Results)
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })

	presenter.PresentWorkerTable(results, out)

	var longest time.Duration
	var rootErr, firstErr error
	for _, r := range results {
		longest = max(longest, r.Duration)
		if r.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = r.Err
		}
		if rootErr == nil && !apperrors.IsContextError(r.Err) {
			rootErr = r.Err
		}
	}
	if rootErr == nil {
		rootErr = firstErr
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No worker reported a result.\n")
		return apperrors.ExitErrorGeneric
	}
	if rootErr != nil {
		fmt.Fprintf(out, "\nGlobal Status: Failure. The cohort did not complete.\n")
		return presenter.HandleError(rootErr, longest, out)
	}

	ref := results[0]
	for _, r := range results[1:] {
		if r.Iterations != ref.Iterations || r.State != ref.State || !sameScalar(r.Residual, ref.Residual) {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! Rank %d stopped at iteration %d with %v, rank %d at iteration %d with %v.\n",
				ref.Rank, ref.Iterations, ref.Residual, r.Rank, r.Iterations, r.Residual)
			return apperrors.ExitErrorMismatch
		}
	}

	fmt.Fprintf(out, "\nGlobal Status: Success. All %d workers agree on the final state.\n", len(results))
	presenter.PresentOutcome(Outcome{
		Iterations: ref.Iterations,
		Residual:   ref.Residual,
		State:      ref.State,
		Duration:   longest,
		Field:      cohort.Field,
		Probe:      cohort.Probe,
	}, opts, out)

	if ref.State == Converged {
		return apperrors.ExitSuccess
	}
	return apperrors.ExitErrorNotConverged
}

// sameScalar compares two reduced scalars bit for bit, treating NaN as
// equal to NaN.
func sameScalar(a, b float64) bool {
	return a == b || (a != a && b != b)
}
