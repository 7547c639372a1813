package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/orchestration"
)

const (
	// ProgressRefreshRate is the refresh period of the spinner line.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth is the width in characters of the progress bar.
	ProgressBarWidth = 30
)

// Spinner abstracts the terminal spinner so progress display can be tested
// without a terminal.
type Spinner interface {
	Start()
	Stop()
	// UpdateSuffix sets the text displayed after the spinner glyph.
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start()                     { rs.s.Start() }
func (rs *realSpinner) Stop()                      { rs.s.Stop() }
func (rs *realSpinner) UpdateSuffix(suffix string) { rs.s.Suffix = suffix }

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)
	return &realSpinner{s}
}

// DisplayProgress shows a spinner with the latest iteration, residual and
// overall progress until progressChan is closed, then prints the final
// progress line.
//
// Parameters:
//   - wg: Signalled when the display has finished.
//   - progressChan: Updates from every worker.
//   - numWorkers: The number of workers reporting.
//   - out: The writer for the progress line.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan orchestration.ProgressUpdate, numWorkers int, out io.Writer) {
	defer wg.Done()
	agg := orchestration.NewProgressAggregator(numWorkers)
	if agg == nil {
		orchestration.DrainChannel(progressChan)
		return
	}

	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(" Starting...")
	s.Start()
	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()

	var last orchestration.AggregatedProgress
	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				fmt.Fprintln(out, FormatProgressLine(last))
				return
			}
			last = agg.Update(update)
		case <-ticker.C:
			s.UpdateSuffix(" " + FormatProgressLine(last))
		}
	}
}

// FormatProgressLine renders one aggregated update, e.g.
// "iteration 1,200  max change 3.457e-02  [███░░░] 40.00% (ETA 12s)".
func FormatProgressLine(p orchestration.AggregatedProgress) string {
	return fmt.Sprintf("iteration %s  max change %s  %s",
		format.FormatCount(int64(p.Iteration)),
		format.FormatResidual(p.Residual),
		format.FormatProgressBarWithETA(p.AverageProgress, p.ETA, ProgressBarWidth))
}
