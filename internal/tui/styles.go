package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/heatcalc/internal/ui"
)

// Style variables for the dashboard, rebuilt from the ui theme by
// initTUIStyles.
var (
	theme ui.TUITheme

	panelStyle         lipgloss.Style
	panelTitleStyle    lipgloss.Style
	headerStyle        lipgloss.Style
	titleStyle         lipgloss.Style
	versionStyle       lipgloss.Style
	elapsedStyle       lipgloss.Style
	labelStyle         lipgloss.Style
	valueStyle         lipgloss.Style
	rankStyle          lipgloss.Style
	convergedStyle     lipgloss.Style
	stoppedStyle       lipgloss.Style
	failedStyle        lipgloss.Style
	chartStyle         lipgloss.Style
	chartAxisStyle     lipgloss.Style
	cpuSparklineStyle  lipgloss.Style
	memSparklineStyle  lipgloss.Style
	statusRunningStyle lipgloss.Style
	statusPausedStyle  lipgloss.Style
	statusDoneStyle    lipgloss.Style
	statusErrorStyle   lipgloss.Style
)

func init() {
	initTUIStyles()
}

// initTUIStyles rebuilds all styles from the current ui theme.
// Called at package init and again from Run once InitTheme has run.
func initTUIStyles() {
	t := ui.GetCurrentTUITheme()
	theme = t

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Foreground(t.Text)

	panelTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent).
		Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Accent)

	versionStyle = lipgloss.NewStyle().Foreground(t.Dim)
	elapsedStyle = lipgloss.NewStyle().Foreground(t.Accent)

	labelStyle = lipgloss.NewStyle().Foreground(t.Dim)
	valueStyle = lipgloss.NewStyle().Foreground(t.Text).Bold(true)
	rankStyle = lipgloss.NewStyle().Foreground(t.Accent)

	convergedStyle = lipgloss.NewStyle().Foreground(t.Success)
	stoppedStyle = lipgloss.NewStyle().Foreground(t.Warning)
	failedStyle = lipgloss.NewStyle().Foreground(t.Error)

	chartStyle = lipgloss.NewStyle().Foreground(t.Accent)
	chartAxisStyle = lipgloss.NewStyle().Foreground(t.Dim)
	cpuSparklineStyle = lipgloss.NewStyle().Foreground(t.Accent)
	memSparklineStyle = lipgloss.NewStyle().Foreground(t.Warning)

	statusRunningStyle = lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	statusPausedStyle = lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
	statusDoneStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	statusErrorStyle = lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

// heatStyle shades a fraction in [0, 1] along the theme's heat ramp.
func heatStyle(fraction float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.HeatColor(fraction, 0, 1))
}
