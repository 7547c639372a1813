// Package ui holds the color themes shared by the CLI presenter and the
// dashboard: ANSI escape codes for line output and lipgloss colors,
// including a temperature ramp, for the TUI.
package ui
