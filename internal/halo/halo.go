// Package halo exchanges ghost rows between row-adjacent workers.
//
// Receives land in private staging rows and are copied into a field's
// ghost rows only by Complete, so the kernel never reads a row that a
// message may still be writing.
package halo

import (
	"context"
	"fmt"
	"time"

	"github.com/agbru/heatcalc/internal/comm"
	"github.com/agbru/heatcalc/internal/grid"
)

// Exchanger runs the per-iteration ghost-row protocol for one worker.
// It is not safe for concurrent use.
type Exchanger struct {
	comm comm.Communicator
	part grid.Partition

	above []float64 // staging row for the top ghost
	below []float64 // staging row for the bottom ghost

	recvAbove comm.Request
	recvBelow comm.Request
	sends     []comm.Request
}

// New returns an exchanger for the band p.
func New(c comm.Communicator, p grid.Partition) *Exchanger {
	e := &Exchanger{comm: c, part: p, sends: make([]comm.Request, 0, 2)}
	if !p.IsFirst() {
		e.above = grid.AcquireRow(p.Cols)
	}
	if !p.IsLast() {
		e.below = grid.AcquireRow(p.Cols)
	}
	return e
}

// PostReceives posts the non-blocking receives for both ghost rows. Workers
// on a global edge skip the missing neighbor.
func (e *Exchanger) PostReceives(ctx context.Context) error {
	if e.recvAbove != nil || e.recvBelow != nil {
		return fmt.Errorf("halo: receives already posted for rank %d", e.part.Rank)
	}
	if above := e.part.Above(); above != grid.NoNeighbor {
		e.recvAbove = e.comm.Irecv(ctx, e.above, above, comm.TagDown)
	}
	if below := e.part.Below(); below != grid.NoNeighbor {
		e.recvBelow = e.comm.Irecv(ctx, e.below, below, comm.TagUp)
	}
	return nil
}

// SendTop posts the send of f's first owned row to the worker above.
func (e *Exchanger) SendTop(ctx context.Context, f *grid.Field) {
	if above := e.part.Above(); above != grid.NoNeighbor {
		e.sends = append(e.sends, e.comm.Isend(ctx, f.Interior(1), above, comm.TagUp))
	}
}

// SendBottom posts the send of f's last owned row to the worker below.
func (e *Exchanger) SendBottom(ctx context.Context, f *grid.Field) {
	if below := e.part.Below(); below != grid.NoNeighbor {
		e.sends = append(e.sends, e.comm.Isend(ctx, f.Interior(e.part.LocalRows), below, comm.TagDown))
	}
}

// Complete waits for both receives, installs them as the ghost rows of dst
// and then waits for every send posted this iteration. It returns the time
// spent blocked.
func (e *Exchanger) Complete(ctx context.Context, dst *grid.Field) (time.Duration, error) {
	start := time.Now()
	defer func() {
		e.recvAbove, e.recvBelow = nil, nil
		e.sends = e.sends[:0]
	}()

	if e.recvAbove != nil {
		if err := e.recvAbove.Wait(ctx); err != nil {
			return time.Since(start), err
		}
		copy(dst.Interior(0), e.above)
	}
	if e.recvBelow != nil {
		if err := e.recvBelow.Wait(ctx); err != nil {
			return time.Since(start), err
		}
		copy(dst.Interior(e.part.LocalRows+1), e.below)
	}
	if err := comm.WaitAll(ctx, e.sends...); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

// Release returns the staging rows to the row pool. The exchanger must not
// be used afterwards.
func (e *Exchanger) Release() {
	grid.ReleaseRow(e.above)
	grid.ReleaseRow(e.below)
	e.above, e.below = nil, nil
}
