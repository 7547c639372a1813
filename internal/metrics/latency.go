package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// Recorded in microseconds, up to one minute with 3 significant digits.
	minWaitMicros = 1
	maxWaitMicros = int64(time.Minute / time.Microsecond)
	sigFigs       = 3
)

// WaitPercentiles summarizes one kind of blocked time.
type WaitPercentiles struct {
	Count int64
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
	Total time.Duration
}

// WaitSummary holds the blocked-time percentiles of a whole cohort.
type WaitSummary struct {
	Halo   WaitPercentiles
	Reduce WaitPercentiles
}

// WaitRecorder aggregates per-iteration halo and reduction waits of every
// worker into HDR histograms. It satisfies the orchestration Observer
// interface and is safe for concurrent use.
type WaitRecorder struct {
	mu          sync.Mutex
	halo        *hdrhistogram.Histogram
	reduce      *hdrhistogram.Histogram
	haloTotal   time.Duration
	reduceTotal time.Duration
}

// NewWaitRecorder creates an empty recorder.
func NewWaitRecorder() *WaitRecorder {
	return &WaitRecorder{
		halo:   hdrhistogram.New(minWaitMicros, maxWaitMicros, sigFigs),
		reduce: hdrhistogram.New(minWaitMicros, maxWaitMicros, sigFigs),
	}
}

// ObserveIteration records the waits of one iteration.
func (r *WaitRecorder) ObserveIteration(_, _ int, _ float64, haloWait, reduceWait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record(r.halo, haloWait)
	record(r.reduce, reduceWait)
	r.haloTotal += haloWait
	r.reduceTotal += reduceWait
}

// record clamps d into the histogram's trackable range; sub-microsecond
// waits count as one microsecond.
func record(h *hdrhistogram.Histogram, d time.Duration) {
	v := min(max(d.Microseconds(), minWaitMicros), maxWaitMicros)
	_ = h.RecordValue(v)
}

// Summary returns the percentiles recorded so far.
func (r *WaitRecorder) Summary() WaitSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return WaitSummary{
		Halo:   percentiles(r.halo, r.haloTotal),
		Reduce: percentiles(r.reduce, r.reduceTotal),
	}
}

func percentiles(h *hdrhistogram.Histogram, total time.Duration) WaitPercentiles {
	if h.TotalCount() == 0 {
		return WaitPercentiles{}
	}
	micros := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return WaitPercentiles{
		Count: h.TotalCount(),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   micros(h.ValueAtQuantile(50)),
		P90:   micros(h.ValueAtQuantile(90)),
		P99:   micros(h.ValueAtQuantile(99)),
		Max:   micros(h.Max()),
		Total: total,
	}
}
