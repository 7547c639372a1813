package stencil

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/parallel"
)

// minRowsPerTask is the smallest row span worth handing to a goroutine.
// Shorter spans run inline.
const minRowsPerTask = 16

// Parallel splits the rows of each call across a bounded number of
// goroutines. Each output cell depends only on src, so the result is
// identical to Serial.
type Parallel struct {
	threads int
}

// NewParallel returns a kernel using at most threads goroutines per call.
func NewParallel(threads int) *Parallel {
	if threads < 1 {
		threads = 1
	}
	return &Parallel{threads: threads}
}

// Name returns "parallel".
func (p *Parallel) Name() string { return ParallelName }

// Threads returns the goroutine limit.
func (p *Parallel) Threads() int { return p.threads }

func (p *Parallel) split(first, last int) []parallel.Range {
	n := last - first + 1
	parts := p.threads
	if n/minRowsPerTask < parts {
		parts = n / minRowsPerTask
	}
	return parallel.Split(first, last, parts)
}

// Relax applies the stencil to rows first..last.
func (p *Parallel) Relax(dst, src *grid.Field, first, last int) {
	ranges := p.split(first, last)
	if len(ranges) <= 1 {
		relaxRows(dst, src, first, last)
		return
	}
	var g errgroup.Group
	g.SetLimit(p.threads)
	for _, r := range ranges {
		r := r
		g.Go(func() error {
			relaxRows(dst, src, r.First, r.Last)
			return nil
		})
	}
	_ = g.Wait()
}

// MaxDelta returns the largest interior difference between a and b.
func (p *Parallel) MaxDelta(a, b *grid.Field) float64 {
	ranges := p.split(1, a.Rows())
	if len(ranges) <= 1 {
		return maxDeltaRows(a, b, 1, a.Rows())
	}
	partial := make([]float64, len(ranges))
	var g errgroup.Group
	g.SetLimit(p.threads)
	for k, r := range ranges {
		k, r := k, r
		g.Go(func() error {
			partial[k] = maxDeltaRows(a, b, r.First, r.Last)
			return nil
		})
	}
	_ = g.Wait()
	m := 0.0
	for _, v := range partial {
		m = math.Max(m, v)
	}
	return m
}
