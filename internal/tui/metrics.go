package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/heatcalc/internal/format"
	"github.com/agbru/heatcalc/internal/metrics"
)

// MetricsModel displays runtime memory and solver throughput.
type MetricsModel struct {
	mem          metrics.MemorySnapshot
	numGoroutine int
	rss          uint64
	threads      int32
	load1        float64

	rate          float64 // iterations per second, smoothed
	lastIteration int
	lastUpdate    time.Time

	width  int
	height int
}

// NewMetricsModel creates a new metrics panel.
func NewMetricsModel() MetricsModel {
	return MetricsModel{lastUpdate: time.Now()}
}

// SetSize updates dimensions.
func (m *MetricsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// UpdateMemStats records a runtime memory reading.
func (m *MetricsModel) UpdateMemStats(msg MemStatsMsg) {
	m.mem = msg.Snapshot
	m.numGoroutine = msg.NumGoroutine
}

// UpdateSysStats records the process part of a sysmon reading.
func (m *MetricsModel) UpdateSysStats(msg SysStatsMsg) {
	m.rss = msg.ProcessRSS
	m.threads = msg.Threads
	m.load1 = msg.Load1
}

// UpdateIteration feeds the smoothed iteration rate. Every rank reports
// the same iteration count, so updates that do not advance are ignored.
func (m *MetricsModel) UpdateIteration(iteration int) {
	now := time.Now()
	dt := now.Sub(m.lastUpdate).Seconds()
	if iteration <= m.lastIteration || dt < 0.05 {
		return
	}
	instant := float64(iteration-m.lastIteration) / dt
	if m.rate > 0 {
		m.rate = 0.7*m.rate + 0.3*instant
	} else {
		m.rate = instant
	}
	m.lastIteration = iteration
	m.lastUpdate = now
}

// Rate returns the smoothed iteration rate.
func (m MetricsModel) Rate() float64 { return m.rate }

// View renders the metrics panel.
func (m MetricsModel) View() string {
	pipe := labelStyle.Render(" | ")
	var rows strings.Builder
	rows.WriteString(fmt.Sprintf("  %s %s%s%s %s",
		labelStyle.Render("Heap:"),
		valueStyle.Render(format.FormatBytes(m.mem.HeapAlloc)+" / "+format.FormatBytes(m.mem.HeapSys)),
		pipe,
		labelStyle.Render("GC:"),
		valueStyle.Render(fmt.Sprintf("%d (%.1fms)", m.mem.NumGC, float64(m.mem.PauseTotalNs)/1e6))))

	colWidth := max((m.width-6)/2, 0)
	left := []string{
		formatMetricCol("Rate:", fmt.Sprintf("%.0f it/s", m.rate), colWidth),
		formatMetricCol("RSS:", format.FormatBytes(m.rss), colWidth),
	}
	right := []string{
		formatMetricCol("Goroutines:", fmt.Sprintf("%d", m.numGoroutine), colWidth),
		formatMetricCol("Load:", fmt.Sprintf("%.2f (%d thr)", m.load1, m.threads), colWidth),
	}
	for i := range left {
		rows.WriteString("\n")
		rows.WriteString(left[i])
		rows.WriteString(right[i])
	}

	return panelStyle.
		Width(max(m.width-2, 0)).
		Height(max(m.height-2, 0)).
		Render(rows.String())
}

func formatMetricCol(label, value string, colWidth int) string {
	cell := fmt.Sprintf(" %s %s",
		labelStyle.Render(fmt.Sprintf("%-12s", label)),
		valueStyle.Render(value))
	return padRight(cell, colWidth)
}

// padRight pads s with spaces to width visible cells.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
