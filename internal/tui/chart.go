package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/agbru/heatcalc/internal/format"
)

const historyCapacity = 240

// ChartModel plots the residual history on a log scale, with host CPU and
// memory sparklines underneath.
type ChartModel struct {
	residuals *RingBuffer
	cpu       *RingBuffer
	mem       *RingBuffer
	epsilon   float64
	reference float64
	latest    float64
	cpuLast   float64
	memLast   float64
	width     int
	height    int
}

// NewChartModel creates a chart converging toward epsilon.
func NewChartModel(epsilon float64) ChartModel {
	return ChartModel{
		residuals: NewRingBuffer(historyCapacity),
		cpu:       NewRingBuffer(historyCapacity),
		mem:       NewRingBuffer(historyCapacity),
		epsilon:   epsilon,
	}
}

// SetSize updates dimensions and trims the sparkline history to fit.
func (c *ChartModel) SetSize(w, h int) {
	c.width = w
	c.height = h
	if spark := w - 16; spark > 0 {
		c.cpu.Resize(spark)
		c.mem.Resize(spark)
	}
}

// AddResidual records a new residual. The first finite residual becomes
// the top of the scale.
func (c *ChartModel) AddResidual(r float64) {
	if c.reference == 0 && r > c.epsilon && !math.IsInf(r, 0) {
		c.reference = r
	}
	c.latest = r
	c.residuals.Push(r)
}

// UpdateSysStats records host CPU and memory usage.
func (c *ChartModel) UpdateSysStats(cpu, mem float64) {
	c.cpuLast = cpu
	c.memLast = mem
	c.cpu.Push(cpu)
	c.mem.Push(mem)
}

// Reset clears all history.
func (c *ChartModel) Reset() {
	c.residuals.Reset()
	c.cpu.Reset()
	c.mem.Reset()
	c.reference = 0
	c.latest = 0
}

// View renders the chart panel.
func (c ChartModel) View() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("MAX CHANGE"))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  latest %s  target %s",
		format.FormatResidual(c.latest), format.FormatResidual(c.epsilon))))

	chartWidth := max(c.width-4, 1)
	chartRows := max(c.height-6, 1)
	samples := c.residuals.Slice()
	percents := make([]float64, len(samples))
	for i, r := range samples {
		percents[i] = ResidualPercent(r, c.reference, c.epsilon)
	}
	lines := RenderBrailleChart(percents, chartWidth, chartRows)
	for i := 0; i < chartRows; i++ {
		b.WriteString("\n")
		if i < len(lines) {
			b.WriteString(chartStyle.Render(lines[i]))
		}
	}
	b.WriteString("\n")
	b.WriteString(chartAxisStyle.Render(strings.Repeat("─", chartWidth)))

	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("CPU %5.1f%% ", c.cpuLast)))
	b.WriteString(cpuSparklineStyle.Render(RenderSparkline(c.cpu.Slice())))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("MEM %5.1f%% ", c.memLast)))
	b.WriteString(memSparklineStyle.Render(RenderSparkline(c.mem.Slice())))

	return panelStyle.
		Width(max(c.width-2, 0)).
		Height(max(c.height-2, 0)).
		Render(b.String())
}
