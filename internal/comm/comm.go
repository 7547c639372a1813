//go:generate mockgen -source=comm.go -destination=mocks/mock_comm.go -package=mocks

// Package comm defines the point-to-point and collective operations the
// solver needs from its message transport, with an in-process
// implementation for single-machine runs and a WebSocket mesh for
// multi-process runs.
package comm

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed communicator.
var ErrClosed = errors.New("communicator closed")

// Request is a handle on a non-blocking send or receive.
type Request interface {
	// Wait blocks until the operation completes, ctx is done, or the
	// transport fails. For a receive, the buffer holds the message once
	// Wait returns nil.
	Wait(ctx context.Context) error
}

// Communicator connects one worker to the rest of its cohort.
//
// Messages between a given (source, destination, tag) triple are delivered
// in the order they were sent. Isend copies its payload before returning, so
// the caller may reuse the row immediately. Irecv writes into buf
// asynchronously; buf must not be touched until the request completes.
type Communicator interface {
	Rank() int
	Size() int
	Isend(ctx context.Context, row []float64, dest, tag int) Request
	Irecv(ctx context.Context, buf []float64, src, tag int) Request
	// AllreduceMax returns the maximum of v over every worker. It is a
	// barrier: no worker returns before all have contributed. NaN wins.
	AllreduceMax(ctx context.Context, v float64) (float64, error)
	Close() error
}

// WaitAll waits for every request in order and returns the first error.
func WaitAll(ctx context.Context, reqs ...Request) error {
	var first error
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if err := r.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// asyncRequest completes when done is closed. When abort is non-nil and
// closes first, Wait reports abortErr instead.
type asyncRequest struct {
	done     chan struct{}
	err      error
	abort    <-chan struct{}
	abortErr func() error
}

func newAsyncRequest() *asyncRequest {
	return &asyncRequest{done: make(chan struct{})}
}

func newAbortableRequest(abort <-chan struct{}, abortErr func() error) *asyncRequest {
	return &asyncRequest{done: make(chan struct{}), abort: abort, abortErr: abortErr}
}

func (r *asyncRequest) finish(err error) {
	r.err = err
	close(r.done)
}

func (r *asyncRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.abort:
		select {
		case <-r.done:
			return r.err
		default:
			return r.abortErr()
		}
	}
}

// completed is a Request that finished at post time.
type completed struct{ err error }

func (c completed) Wait(context.Context) error { return c.err }

func checkLength(buf, msg []float64, src, tag int) error {
	if len(buf) != len(msg) {
		return fmt.Errorf("message from rank %d tag %d has %d values, receive buffer holds %d", src, tag, len(msg), len(buf))
	}
	return nil
}

// Halo message tags. A row travelling to a higher rank is tagged TagDown,
// a row travelling to a lower rank is tagged TagUp.
const (
	TagDown = 100
	TagUp   = 101
)

// maxNaN returns the larger of a and b; NaN wins.
func maxNaN(a, b float64) float64 {
	if a != a {
		return a
	}
	if b != b || b > a {
		return b
	}
	return a
}
