package tui

import (
	"fmt"
	"strings"

	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/orchestration"
)

// workerRow is the latest known state of one rank.
type workerRow struct {
	iteration int
	residual  float64
	fraction  float64
	final     bool
	result    *orchestration.Result
}

// WorkersModel renders the per-worker iteration and residual table.
type WorkersModel struct {
	rows   []workerRow
	width  int
	height int
}

// NewWorkersModel creates a table for n ranks.
func NewWorkersModel(n int) WorkersModel {
	return WorkersModel{rows: make([]workerRow, max(n, 0))}
}

// SetSize updates dimensions.
func (w *WorkersModel) SetSize(width, height int) {
	w.width = width
	w.height = height
}

// Update records a progress message. Messages for unknown ranks are
// dropped.
func (w *WorkersModel) Update(msg ProgressMsg) {
	if msg.Rank < 0 || msg.Rank >= len(w.rows) {
		return
	}
	r := &w.rows[msg.Rank]
	r.iteration = msg.Iteration
	r.residual = msg.Residual
	r.fraction = msg.Value
	r.final = msg.Final
}

// SetResults attaches the final per-worker results.
func (w *WorkersModel) SetResults(results []orchestration.Result) {
	for i := range results {
		res := results[i]
		if res.Rank < 0 || res.Rank >= len(w.rows) {
			continue
		}
		r := &w.rows[res.Rank]
		r.result = &res
		r.iteration = res.Iterations
		r.residual = res.Residual
		if res.Err == nil {
			r.fraction = 1
			r.final = true
		}
	}
}

// Reset clears every row.
func (w *WorkersModel) Reset() {
	w.rows = make([]workerRow, len(w.rows))
}

// status returns the rendered status cell of a row.
func (r workerRow) status() string {
	switch {
	case r.result != nil && r.result.Err != nil:
		return failedStyle.Render("failed")
	case r.result != nil && r.result.State == orchestration.Converged:
		return convergedStyle.Render("converged")
	case r.result != nil:
		return stoppedStyle.Render("stopped")
	case r.final:
		return convergedStyle.Render("done")
	case r.iteration == 0:
		return labelStyle.Render("waiting")
	default:
		return statusRunningStyle.Render("running")
	}
}

// View renders the table.
func (w WorkersModel) View() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("WORKERS"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf(" %-5s %10s %12s  %-10s", "Rank", "Iteration", "Max change", "Status")))

	barWidth := max(w.width-48, 4)
	visible := max(w.height-4, 1)
	for i, r := range w.rows {
		if i >= visible {
			b.WriteString("\n")
			b.WriteString(labelStyle.Render(fmt.Sprintf(" … %d more", len(w.rows)-i)))
			break
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" %s %10s %12s  %s  %s",
			rankStyle.Render(fmt.Sprintf("%-5d", i)),
			format.FormatCount(int64(r.iteration)),
			format.FormatResidual(r.residual),
			padRight(r.status(), 10),
			heatStyle(1-r.fraction).Render(format.FormatProgressBar(r.fraction, barWidth)),
		))
	}
	return panelStyle.
		Width(max(w.width-2, 0)).
		Height(max(w.height-2, 0)).
		Render(b.String())
}
