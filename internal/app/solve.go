package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/agbru/heatcalc/internal/cli"
	"github.com/agbru/heatcalc/internal/comm"
	"github.com/agbru/heatcalc/internal/config"
	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/logging"
	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/stencil"
	"github.com/agbru/heatcalc/internal/ui"
)

const (
	memorySampleInterval = 100 * time.Millisecond
	meshDialRetry        = 200 * time.Millisecond
	probeLength          = 6
)

// buildProblem turns the configuration into the solver's inputs.
func (a *Application) buildProblem(logger logging.Logger) (orchestration.Problem, orchestration.Options, error) {
	boundary, err := grid.BoundaryByName(a.Config.Boundary)
	if err != nil {
		return orchestration.Problem{}, orchestration.Options{}, err
	}
	kernel, err := stencil.ByName(a.Config.Kernel, a.Config.KernelThreads)
	if err != nil {
		return orchestration.Problem{}, orchestration.Options{}, err
	}
	problem := orchestration.Problem{
		Rows:      a.Config.Rows,
		Cols:      a.Config.Cols,
		Workers:   a.Config.Workers,
		Boundary:  boundary,
		Criterion: a.Config.Criterion(),
	}
	opts := orchestration.Options{
		Kernel:           kernel,
		ProgressInterval: a.Config.ProgressInterval,
		Logger:           logger,
	}
	return problem, opts, nil
}

func (a *Application) reportSetupError(err error) int {
	return apperrors.HandleSolveError(err, 0, a.ErrWriter)
}

// runSolve runs the solve in CLI mode on the configured transport.
func (a *Application) runSolve(ctx context.Context, out io.Writer, logger *logging.ZerologAdapter) int {
	problem, opts, err := a.buildProblem(logger)
	if err != nil {
		return a.reportSetupError(err)
	}

	waits := metrics.NewWaitRecorder()
	opts.Observers = append(opts.Observers, waits)

	tel, err := a.startTelemetry(ctx, logger)
	if err != nil {
		return a.reportSetupError(err)
	}
	defer tel.Stop()
	opts.Observers = append(opts.Observers, tel.Observers()...)

	mem := metrics.WatchMemory(ctx, memorySampleInterval)
	defer mem.Stop()

	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
	}

	capture := &outcomeCapture{ResultPresenter: a.presenter(waits, mem)}
	var code int
	switch a.Config.Transport {
	case config.TransportWebSocket:
		code = a.runRemote(ctx, problem, opts, capture, out, logger)
	default:
		code = a.runLocal(ctx, problem, opts, capture, out)
	}
	tel.Finish(capture.state())

	return a.writeField(capture, code, out)
}

// presenter picks the result presenter for the output mode.
func (a *Application) presenter(waits *metrics.WaitRecorder, mem *metrics.MemoryWatch) orchestration.ResultPresenter {
	if a.Config.Quiet {
		return quietPresenter{errOut: a.ErrWriter}
	}
	p := cli.CLIResultPresenter{Details: a.Config.Details}
	if a.Config.Verbose {
		p.Waits = waits
		p.Memory = mem
	}
	return p
}

func (a *Application) progressReporter(out io.Writer) (orchestration.ProgressReporter, io.Writer) {
	if a.Config.Quiet {
		return orchestration.NullProgressReporter{}, io.Discard
	}
	return cli.CLIProgressReporter{}, out
}

func (a *Application) presentationOptions() orchestration.PresentationOptions {
	return orchestration.PresentationOptions{
		Rows:          a.Config.Rows,
		Cols:          a.Config.Cols,
		Workers:       a.Config.Workers,
		Epsilon:       a.Config.Epsilon,
		MaxIterations: a.Config.MaxIterations,
		Verbose:       a.Config.Verbose,
		Details:       a.Config.Details,
	}
}

// runLocal runs every worker in this process.
func (a *Application) runLocal(ctx context.Context, problem orchestration.Problem, opts orchestration.Options, presenter orchestration.ResultPresenter, out io.Writer) int {
	reporter, progressOut := a.progressReporter(out)
	start := time.Now()
	cohort, err := orchestration.ExecuteCohort(ctx, problem, opts, reporter, progressOut)
	if err != nil && !cohort.Failed() {
		return presenter.HandleError(err, time.Since(start), out)
	}
	return orchestration.AnalyzeResults(cohort, a.presentationOptions(), presenter, out)
}

// runRemote runs this process's rank of a multi-process cohort connected
// over WebSockets.
func (a *Application) runRemote(ctx context.Context, problem orchestration.Problem, opts orchestration.Options, presenter orchestration.ResultPresenter, out io.Writer, logger *logging.ZerologAdapter) int {
	rankLogger := logger.With(logging.Int("rank", a.Config.Rank))
	opts.Logger = rankLogger

	start := time.Now()
	c, err := comm.DialMesh(ctx, comm.MeshConfig{
		Rank:      a.Config.Rank,
		Peers:     a.Config.Peers,
		DialRetry: meshDialRetry,
		Logger:    rankLogger,
	})
	if err != nil {
		return presenter.HandleError(err, time.Since(start), out)
	}
	defer c.Close()
	rankLogger.Info("mesh connected", logging.Int("size", c.Size()), logging.Duration("elapsed", time.Since(start)))

	reporter, progressOut := a.progressReporter(out)
	progressChan := make(chan orchestration.ProgressUpdate, orchestration.ProgressBufferMultiplier)
	opts.ProgressHook = localProgressHook(progressChan, problem)
	var wg sync.WaitGroup
	wg.Add(1)
	go reporter.DisplayProgress(&wg, progressChan, 1, progressOut)

	res, solver, err := orchestration.RunWorker(ctx, c, problem, opts)
	close(progressChan)
	wg.Wait()
	if solver == nil {
		return presenter.HandleError(err, time.Since(start), out)
	}
	defer solver.Close()

	cohort := orchestration.CohortResult{Results: []orchestration.Result{res}}
	if err == nil && solver.Partition().IsLast() {
		cohort.Probe = solver.Grid().Probe(probeLength)
	}
	return orchestration.AnalyzeResults(cohort, a.presentationOptions(), presenter, out)
}

// localProgressHook publishes the rank's progress as worker 0 of a
// one-worker display. Updates are dropped rather than stalling the solve
// when the display falls behind.
func localProgressHook(ch chan<- orchestration.ProgressUpdate, problem orchestration.Problem) orchestration.ProgressHook {
	est := &orchestration.FractionEstimator{Criterion: problem.Criterion}
	return func(iteration int, residual float64, _ int) {
		fraction := est.Estimate(iteration, residual)
		select {
		case ch <- orchestration.ProgressUpdate{
			Iteration: iteration,
			Residual:  residual,
			Fraction:  fraction,
			Final:     fraction >= 1,
		}:
		default:
		}
	}
}

// writeField dumps the assembled field when --output is set and the solve
// produced one.
func (a *Application) writeField(capture *outcomeCapture, code int, out io.Writer) int {
	if a.Config.OutputFile == "" || capture.outcome == nil {
		return code
	}
	if capture.outcome.Field == nil {
		fmt.Fprintf(a.ErrWriter, "%sField output needs the local transport; rank %d holds only its band.%s\n",
			ui.ColorYellow(), a.Config.Rank, ui.ColorReset())
		return code
	}
	if err := cli.WriteFieldToFile(a.Config.OutputFile, *capture.outcome); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error writing output file: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	if !a.Config.Quiet {
		cli.DisplayFieldSaved(out, a.Config.OutputFile)
	}
	return code
}

// outcomeCapture remembers the outcome handed to the wrapped presenter.
type outcomeCapture struct {
	orchestration.ResultPresenter
	outcome *orchestration.Outcome
	failed  bool
}

func (c *outcomeCapture) PresentOutcome(outcome orchestration.Outcome, opts orchestration.PresentationOptions, out io.Writer) {
	c.outcome = &outcome
	c.ResultPresenter.PresentOutcome(outcome, opts, out)
}

func (c *outcomeCapture) HandleError(err error, duration time.Duration, out io.Writer) int {
	c.failed = true
	return c.ResultPresenter.HandleError(err, duration, out)
}

// state names how the solve ended, for metrics and /healthz.
func (c *outcomeCapture) state() string {
	switch {
	case c.outcome != nil:
		return c.outcome.State.String()
	case c.failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// quietPresenter prints a single line for scripts and sends diagnostics
// to errOut.
type quietPresenter struct {
	errOut io.Writer
}

func (quietPresenter) PresentWorkerTable([]orchestration.Result, io.Writer) {}

func (quietPresenter) PresentOutcome(outcome orchestration.Outcome, _ orchestration.PresentationOptions, out io.Writer) {
	cli.DisplayQuietResult(out, outcome)
}

func (q quietPresenter) HandleError(err error, duration time.Duration, _ io.Writer) int {
	return apperrors.HandleSolveError(err, duration, q.errOut)
}
