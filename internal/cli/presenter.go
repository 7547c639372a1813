package cli

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/metrics"
	"github.com/agbru/heatcalc/internal/orchestration"
	"github.com/agbru/heatcalc/internal/ui"
)

// CLIProgressReporter implements orchestration.ProgressReporter with a
// terminal spinner.
type CLIProgressReporter struct{}

var _ orchestration.ProgressReporter = CLIProgressReporter{}

// DisplayProgress displays a spinner and progress bar for the running solve.
func (CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, numWorkers int, out io.Writer) {
	DisplayProgress(wg, progressChan, numWorkers, out)
}

// CLIResultPresenter implements orchestration.ResultPresenter for the
// terminal. The optional Waits and Memory sources add blocked-time
// percentiles and memory statistics to verbose output.
type CLIResultPresenter struct {
	Details bool
	Waits   *metrics.WaitRecorder
	Memory  *metrics.MemoryWatch
}

var (
	_ orchestration.ResultPresenter   = CLIResultPresenter{}
	_ orchestration.DurationFormatter = CLIResultPresenter{}
)

// PresentWorkerTable displays one row per worker when details are enabled.
// Columns are padded by hand because the status column carries ANSI codes.
func (p CLIResultPresenter) PresentWorkerTable(results []orchestration.Result, out io.Writer) {
	if !p.Details || len(results) == 0 {
		return
	}
	headers := []string{"Rank", "Iterations", "Residual", "Duration", "Halo wait", "Reduce wait"}
	rows := make([][]string, len(results))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for i, r := range results {
		rows[i] = []string{
			strconv.Itoa(r.Rank),
			format.FormatCount(int64(r.Iterations)),
			format.FormatResidual(r.Residual),
			format.FormatExecutionDuration(r.Duration),
			format.FormatExecutionDuration(r.HaloWait),
			format.FormatExecutionDuration(r.ReduceWait),
		}
		for j, cell := range rows[i] {
			widths[j] = max(widths[j], len([]rune(cell)))
		}
	}

	fmt.Fprintf(out, "\n--- Worker Summary ---\n")
	for j, h := range headers {
		fmt.Fprintf(out, "%s%s%s%s   ", ui.ColorUnderline(), h, ui.ColorReset(), padRight("", widths[j]-len(h)))
	}
	fmt.Fprintf(out, "%sStatus%s\n", ui.ColorUnderline(), ui.ColorReset())
	for i, r := range results {
		for j, cell := range rows[i] {
			fmt.Fprintf(out, "%s%s   ", cell, padRight("", widths[j]-len([]rune(cell))))
		}
		fmt.Fprintln(out, workerStatus(r))
	}
}

func workerStatus(r orchestration.Result) string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s❌ Failure (%v)%s", ui.ColorRed(), r.Err, ui.ColorReset())
	case r.Converged():
		return fmt.Sprintf("%s✅ %s%s", ui.ColorGreen(), r.State, ui.ColorReset())
	default:
		return fmt.Sprintf("%s⚠ %s%s", ui.ColorYellow(), r.State, ui.ColorReset())
	}
}

// padRight returns s followed by length spaces.
func padRight(s string, length int) string {
	if length <= 0 {
		return s
	}
	return s + fmt.Sprintf("%*s", length, "")
}

// PresentOutcome displays the final status line, the error summary of the
// last iteration and the timing. Verbose output adds the corner probe,
// wait percentiles and memory statistics.
func (p CLIResultPresenter) PresentOutcome(outcome orchestration.Outcome, opts orchestration.PresentationOptions, out io.Writer) {
	fmt.Fprintf(out, "\n--- Solution ---\n")
	if outcome.State == orchestration.Converged {
		fmt.Fprintf(out, "Status: %sConverged%s after %s iterations (epsilon %s).\n",
			ui.ColorGreen(), ui.ColorReset(), format.FormatCount(int64(outcome.Iterations)), format.FormatResidual(opts.Epsilon))
	} else {
		fmt.Fprintf(out, "Status: %sIteration cap reached%s after %s iterations without converging (epsilon %s).\n",
			ui.ColorYellow(), ui.ColorReset(), format.FormatCount(int64(outcome.Iterations)), format.FormatResidual(opts.Epsilon))
	}
	fmt.Fprintf(out, "Max error at iteration %d was %s\n", outcome.Iterations, format.FormatResidualExact(outcome.Residual))
	fmt.Fprintf(out, "Total time was %s%s%s (%s).\n",
		ui.ColorCyan(), format.FormatExecutionDuration(outcome.Duration), ui.ColorReset(),
		format.FormatIterationRate(outcome.Iterations, outcome.Duration))

	if !opts.Verbose {
		return
	}
	DisplayProbe(outcome, out)
	if p.Waits != nil {
		DisplayWaitSummary(p.Waits.Summary(), outcome.Duration*time.Duration(max(opts.Workers, 1)), out)
	}
	if p.Memory != nil {
		DisplayMemoryStats(p.Memory.Report(), out)
	}
}

// FormatDuration formats a duration with the CLI conventions.
func (CLIResultPresenter) FormatDuration(d time.Duration) string {
	return format.FormatExecutionDuration(d)
}

// HandleError prints the diagnosis of a failed solve in the error color
// and returns its exit code.
func (CLIResultPresenter) HandleError(err error, duration time.Duration, out io.Writer) int {
	fmt.Fprint(out, ui.ColorRed())
	code := apperrors.HandleSolveError(err, duration, out)
	fmt.Fprint(out, ui.ColorReset())
	return code
}

// DisplayProbe prints the diagonal near the bottom-right corner, the
// cells where the ramps meet and the field converges last.
func DisplayProbe(outcome orchestration.Outcome, out io.Writer) {
	if len(outcome.Probe) == 0 {
		return
	}
	fmt.Fprintf(out, "\nCorner probe:\n")
	for _, pt := range outcome.Probe {
		fmt.Fprintf(out, "  [%d,%d]: %.6f\n", pt.Row, pt.Col, pt.Value)
	}
}

// DisplayWaitSummary prints the blocked-time percentiles of the cohort.
// workerTime is the summed wall time of every worker.
func DisplayWaitSummary(s metrics.WaitSummary, workerTime time.Duration, out io.Writer) {
	if s.Halo.Count == 0 && s.Reduce.Count == 0 {
		return
	}
	fmt.Fprintf(out, "\nBlocked time per iteration:\n")
	row := func(name string, w metrics.WaitPercentiles) {
		fmt.Fprintf(out, "  %-7s p50 %-8s p90 %-8s p99 %-8s max %-8s (%s of worker time)\n", name,
			format.FormatExecutionDuration(w.P50), format.FormatExecutionDuration(w.P90),
			format.FormatExecutionDuration(w.P99), format.FormatExecutionDuration(w.Max),
			format.FormatShare(w.Total, workerTime))
	}
	row("halo", s.Halo)
	row("reduce", s.Reduce)
}

// DisplayMemoryStats prints the memory readings of the solve.
func DisplayMemoryStats(r metrics.MemoryReport, out io.Writer) {
	fmt.Fprintf(out, "\nMemory Stats:\n")
	fmt.Fprintf(out, "  Peak heap:       %s\n", format.FormatBytes(r.PeakHeap))
	fmt.Fprintf(out, "  Heap from OS:    %s\n", format.FormatBytes(r.Last.HeapSys))
	fmt.Fprintf(out, "  GC cycles:       %d\n", r.GCCycles)
	fmt.Fprintf(out, "  GC pause total:  %s\n", format.FormatExecutionDuration(r.GCPause))
}
