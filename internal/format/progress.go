package format

import (
	"fmt"
	"strings"
	"time"
)

// ProgressState tracks the completion fraction of each worker.
type ProgressState struct {
	values []float64
}

// NewProgressState creates a state for n workers, all at zero.
func NewProgressState(n int) *ProgressState {
	return &ProgressState{values: make([]float64, n)}
}

// Update records the fraction of worker idx. Out-of-range indices are
// ignored and values are clamped to [0, 1].
func (s *ProgressState) Update(idx int, value float64) {
	if idx < 0 || idx >= len(s.values) {
		return
	}
	s.values[idx] = min(max(value, 0), 1)
}

// CalculateAverage returns the mean fraction across workers.
func (s *ProgressState) CalculateAverage() float64 {
	if len(s.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(len(s.values))
}

// ProgressWithETA extends ProgressState with an exponentially smoothed
// progress rate used to estimate the remaining time.
type ProgressWithETA struct {
	*ProgressState
	numWorkers   int
	startTime    time.Time
	lastUpdate   time.Time
	lastProgress float64
	progressRate float64 // fraction per second
}

// etaSmoothing is the weight of the newest rate sample.
const etaSmoothing = 0.3

// NewProgressWithETA creates a tracker for numWorkers workers.
func NewProgressWithETA(numWorkers int) *ProgressWithETA {
	now := time.Now()
	return &ProgressWithETA{
		ProgressState: NewProgressState(numWorkers),
		numWorkers:    numWorkers,
		startTime:     now,
		lastUpdate:    now,
	}
}

// UpdateWithETA records a worker's fraction and returns the new average and
// the estimated remaining time. The ETA is zero until a rate is known.
func (p *ProgressWithETA) UpdateWithETA(idx int, value float64) (float64, time.Duration) {
	p.Update(idx, value)
	avg := p.CalculateAverage()

	now := time.Now()
	if elapsed := now.Sub(p.lastUpdate).Seconds(); elapsed > 0 && avg > p.lastProgress {
		rate := (avg - p.lastProgress) / elapsed
		if p.progressRate == 0 {
			p.progressRate = rate
		} else {
			p.progressRate = etaSmoothing*rate + (1-etaSmoothing)*p.progressRate
		}
		p.lastUpdate = now
		p.lastProgress = avg
	}
	return avg, p.GetETA()
}

// GetETA returns the current remaining-time estimate.
func (p *ProgressWithETA) GetETA() time.Duration {
	if p.progressRate <= 0 {
		return 0
	}
	remaining := 1 - p.CalculateAverage()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining / p.progressRate * float64(time.Second))
}

// Elapsed returns the time since the tracker was created.
func (p *ProgressWithETA) Elapsed() time.Duration { return time.Since(p.startTime) }

// FormatETA renders an ETA for a status line.
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(eta.Minutes()), int(eta.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(eta.Hours()), int(eta.Minutes())%60)
	}
}

// FormatProgressBar renders progress (0..1) as a bar of width cells.
func FormatProgressBar(progress float64, width int) string {
	if width <= 0 {
		return ""
	}
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatProgressBarWithETA renders the bar followed by percentage and ETA.
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	return fmt.Sprintf("%s %5.1f%% ETA %s", FormatProgressBar(progress, width), progress*100, FormatETA(eta))
}
