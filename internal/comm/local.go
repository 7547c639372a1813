package comm

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
)

// LocalWorld connects size in-process workers through shared mailboxes.
// Each worker obtains its endpoint with Comm.
type LocalWorld struct {
	size   int
	office postOffice

	reduceMu sync.Mutex
	round    *reduceRound

	closeOnce sync.Once
	closed    chan struct{}
}

// reduceRound collects one AllreduceMax call from every worker.
type reduceRound struct {
	done    chan struct{}
	value   float64
	arrived int
}

// NewLocalWorld creates a world of size workers.
func NewLocalWorld(size int) *LocalWorld {
	return &LocalWorld{size: size, closed: make(chan struct{})}
}

// Size returns the number of workers in the world.
func (w *LocalWorld) Size() int { return w.size }

// Comm returns the endpoint for rank.
func (w *LocalWorld) Comm(rank int) *LocalComm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0, %d)", rank, w.size))
	}
	c := &LocalComm{world: w, rank: rank, closed: make(chan struct{}), done: make(chan struct{})}
	go func() {
		select {
		case <-c.closed:
		case <-w.closed:
		}
		close(c.done)
	}()
	return c
}

// Close aborts every pending and future operation on every endpoint.
func (w *LocalWorld) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	return nil
}

func (w *LocalWorld) join(v float64) *reduceRound {
	w.reduceMu.Lock()
	r := w.round
	if r == nil {
		r = &reduceRound{done: make(chan struct{}), value: v}
		w.round = r
	} else {
		r.value = maxNaN(r.value, v)
	}
	r.arrived++
	if r.arrived == w.size {
		w.round = nil
		close(r.done)
	}
	w.reduceMu.Unlock()
	return r
}

// pending reports how many workers have joined the open reduction round.
func (w *LocalWorld) pending() int {
	w.reduceMu.Lock()
	defer w.reduceMu.Unlock()
	if w.round == nil {
		return 0
	}
	return w.round.arrived
}

// LocalComm is one worker's endpoint in a LocalWorld.
type LocalComm struct {
	world     *LocalWorld
	rank      int
	closeOnce sync.Once
	closed    chan struct{}
	// done is closed once either the endpoint or the world is closed.
	done chan struct{}
}

var _ Communicator = (*LocalComm)(nil)

// Rank returns this endpoint's rank.
func (c *LocalComm) Rank() int { return c.rank }

// Size returns the world size.
func (c *LocalComm) Size() int { return c.world.size }

func (c *LocalComm) abortErr() error {
	return apperrors.CommunicationError{Op: "receive", Rank: c.rank, Peer: -1, Cause: ErrClosed}
}

func (c *LocalComm) isClosed() bool {
	select {
	case <-c.closed:
		return true
	case <-c.world.closed:
		return true
	default:
		return false
	}
}

// Isend copies row into a pooled buffer and queues it for dest. The
// returned request is already complete.
func (c *LocalComm) Isend(ctx context.Context, row []float64, dest, tag int) Request {
	if c.isClosed() {
		return completed{err: apperrors.CommunicationError{Op: "send", Rank: c.rank, Peer: dest, Cause: ErrClosed}}
	}
	if dest < 0 || dest >= c.world.size {
		return completed{err: apperrors.CommunicationError{Op: "send", Rank: c.rank, Peer: dest, Cause: fmt.Errorf("no such rank")}}
	}
	if err := ctx.Err(); err != nil {
		return completed{err: err}
	}
	msg := grid.AcquireRow(len(row))
	copy(msg, row)
	c.world.office.box(c.rank, dest, tag).put(msg)
	return completed{}
}

// Irecv matches the oldest message from src with the given tag and copies
// it into buf.
func (c *LocalComm) Irecv(ctx context.Context, buf []float64, src, tag int) Request {
	if src < 0 || src >= c.world.size {
		return completed{err: apperrors.CommunicationError{Op: "receive", Rank: c.rank, Peer: src, Cause: fmt.Errorf("no such rank")}}
	}
	req := newAsyncRequest()
	box := c.world.office.box(src, c.rank, tag)
	go func() {
		msg, err := box.take(ctx, c.done, c.abortErr)
		if err != nil {
			req.finish(err)
			return
		}
		err = checkLength(buf, msg, src, tag)
		if err == nil {
			copy(buf, msg)
		} else {
			err = apperrors.CommunicationError{Op: "receive", Rank: c.rank, Peer: src, Cause: err}
		}
		grid.ReleaseRow(msg)
		req.finish(err)
	}()
	return req
}

// AllreduceMax blocks until every endpoint has contributed.
func (c *LocalComm) AllreduceMax(ctx context.Context, v float64) (float64, error) {
	if c.isClosed() {
		return 0, apperrors.CommunicationError{Op: "allreduce", Rank: c.rank, Peer: -1, Cause: ErrClosed}
	}
	r := c.world.join(v)
	select {
	case <-r.done:
		return r.value, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-c.done:
		return 0, apperrors.CommunicationError{Op: "allreduce", Rank: c.rank, Peer: -1, Cause: ErrClosed}
	}
}

// Close releases the endpoint. Pending receives fail with ErrClosed; other
// endpoints are unaffected.
func (c *LocalComm) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
