package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// MemorySnapshot holds a point-in-time memory reading.
type MemorySnapshot struct {
	HeapAlloc    uint64 // bytes in use by the process heap
	HeapSys      uint64 // bytes obtained from the OS for the heap
	Sys          uint64 // total bytes obtained from the OS
	NumGC        uint32 // completed GC cycles
	PauseTotalNs uint64 // cumulative GC pause time
}

// ReadMemory reads the current runtime memory statistics.
func ReadMemory() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
	}
}

// GCPause returns the cumulative GC pause as a duration.
func (s MemorySnapshot) GCPause() time.Duration { return time.Duration(s.PauseTotalNs) }

// MemoryWatch samples memory at a fixed interval during a solve and keeps
// the peak heap reading. Two field buffers per worker dominate the heap, so
// the peak is a direct check on the decomposition's footprint.
type MemoryWatch struct {
	mu    sync.Mutex
	start MemorySnapshot
	last  MemorySnapshot
	peak  uint64
	done  chan struct{}
}

// WatchMemory starts sampling every interval until ctx is done or Stop is
// called.
func WatchMemory(ctx context.Context, interval time.Duration) *MemoryWatch {
	first := ReadMemory()
	w := &MemoryWatch{start: first, last: first, peak: first.HeapAlloc, done: make(chan struct{})}
	go w.loop(ctx, interval)
	return w
}

func (w *MemoryWatch) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *MemoryWatch) sample() MemorySnapshot {
	s := ReadMemory()
	w.mu.Lock()
	w.last = s
	w.peak = max(w.peak, s.HeapAlloc)
	w.mu.Unlock()
	return s
}

// Stop takes a final sample and stops the watch. It is safe to call more
// than once.
func (w *MemoryWatch) Stop() MemoryReport {
	w.mu.Lock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.mu.Unlock()
	w.sample()
	return w.Report()
}

// MemoryReport summarizes a watch.
type MemoryReport struct {
	PeakHeap uint64
	Last     MemorySnapshot
	GCCycles uint32
	GCPause  time.Duration
}

// Report returns the current summary without stopping the watch.
func (w *MemoryWatch) Report() MemoryReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return MemoryReport{
		PeakHeap: w.peak,
		Last:     w.last,
		GCCycles: w.last.NumGC - w.start.NumGC,
		GCPause:  w.last.GCPause() - w.start.GCPause(),
	}
}
