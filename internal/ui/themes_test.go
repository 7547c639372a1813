package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestInitTheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	t.Setenv("NO_COLOR", "")
	InitTheme(true)
	if got := GetCurrentTheme().Name; got != "none" {
		t.Errorf("InitTheme(true) theme = %q, want none", got)
	}
	if ColorRed() != "" || ColorReset() != "" {
		t.Error("colors should be empty when disabled")
	}
	if _, ok := GetCurrentTUITheme().Accent.(lipgloss.NoColor); !ok {
		t.Error("TUI theme should follow the disabled CLI theme")
	}

	InitTheme(false)
	if got := GetCurrentTheme().Name; got != "none" {
		t.Errorf("NO_COLOR set: theme = %q, want none", got)
	}
}

func TestColorsFollowTheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	SetCurrentTheme(DarkTheme)
	if ColorGreen() != DarkTheme.Success || ColorBold() != "\033[1m" {
		t.Error("color accessors should return the dark theme codes")
	}
	SetCurrentTheme(LightTheme)
	if ColorPrimary() != LightTheme.Primary {
		t.Error("color accessors should return the light theme codes")
	}
}

func TestHeatColor(t *testing.T) {
	th := DarkTUITheme
	tests := []struct {
		name   string
		v      float64
		lo, hi float64
		want   int
	}{
		{"coldest", 0, 0, 100, 0},
		{"below range", -5, 0, 100, 0},
		{"middle", 50, 0, 100, 3},
		{"hottest", 100, 0, 100, len(th.Heat) - 1},
		{"above range", 500, 0, 100, len(th.Heat) - 1},
		{"empty range", 5, 1, 1, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := th.HeatColor(tt.v, tt.lo, tt.hi); got != th.Heat[tt.want] {
				t.Errorf("HeatColor(%v) = %v, want index %d", tt.v, got, tt.want)
			}
		})
	}
	if _, ok := (TUITheme{}).HeatColor(1, 0, 2).(lipgloss.NoColor); !ok {
		t.Error("empty ramp should render without color")
	}
}
