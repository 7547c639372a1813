package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// FooterModel renders the run status and key help.
type FooterModel struct {
	help    help.Model
	keys    KeyMap
	paused  bool
	done    bool
	failed  bool
	status  string
	width   int
	showAll bool
}

// NewFooterModel creates a footer for keys.
func NewFooterModel(keys KeyMap) FooterModel {
	h := help.New()
	h.Styles.ShortKey = panelTitleStyle
	h.Styles.ShortDesc = labelStyle
	h.Styles.FullKey = panelTitleStyle
	h.Styles.FullDesc = labelStyle
	return FooterModel{help: h, keys: keys}
}

// SetWidth updates the available width.
func (f *FooterModel) SetWidth(w int) {
	f.width = w
	f.help.Width = w
}

// SetPaused toggles the paused indicator.
func (f *FooterModel) SetPaused(p bool) { f.paused = p }

// SetDone marks the run as finished with a status label.
func (f *FooterModel) SetDone(status string) {
	f.done = true
	f.status = status
}

// SetError marks the run as failed.
func (f *FooterModel) SetError() {
	f.done = true
	f.failed = true
	f.status = "FAILED"
}

// ToggleHelp switches between short and full help.
func (f *FooterModel) ToggleHelp() {
	f.showAll = !f.showAll
	f.help.ShowAll = f.showAll
}

// Reset clears the status.
func (f *FooterModel) Reset() {
	f.paused = false
	f.done = false
	f.failed = false
	f.status = ""
}

func (f FooterModel) statusView() string {
	switch {
	case f.failed:
		return statusErrorStyle.Render(" " + f.status + " ")
	case f.done:
		return statusDoneStyle.Render(" " + f.status + " ")
	case f.paused:
		return statusPausedStyle.Render(" PAUSED ")
	default:
		return statusRunningStyle.Render(" RUNNING ")
	}
}

// View renders the footer.
func (f FooterModel) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, f.statusView(), " ", f.help.View(f.keys))
}
