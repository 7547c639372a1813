package format

import (
	"fmt"
	"time"
)

// FormatExecutionDuration formats a wall time for the summary: whole
// microseconds below a millisecond, whole milliseconds below a second,
// and the duration rounded to the millisecond above that.
func FormatExecutionDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "< 1µs"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(time.Millisecond).String()
	}
}

// FormatIterationRate renders the throughput of a solve, e.g. "1,250 it/s".
func FormatIterationRate(iterations int, d time.Duration) string {
	if iterations <= 0 || d <= 0 {
		return "n/a"
	}
	rate := float64(iterations) / d.Seconds()
	if rate < 10 {
		return fmt.Sprintf("%.2f it/s", rate)
	}
	return FormatCount(int64(rate+0.5)) + " it/s"
}

// FormatShare renders part as a percentage of whole, e.g. "12.5%".
func FormatShare(part, whole time.Duration) string {
	if whole <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}
