package comm

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/heatcalc/internal/errors"
)

// newMesh starts size WebSocket workers on loopback listeners and returns
// them indexed by rank.
func newMesh(t *testing.T, size int) []*WebSocketComm {
	t.Helper()
	listeners := make([]net.Listener, size)
	peers := make([]string, size)
	for r := range listeners {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners[r] = ln
		peers[r] = ln.Addr().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	comms := make([]*WebSocketComm, size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	for r := 0; r < size; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			comms[r], errs[r] = DialMesh(ctx, MeshConfig{
				Rank:      r,
				Peers:     peers,
				Listener:  listeners[r],
				DialRetry: 10 * time.Millisecond,
			})
		}()
	}
	wg.Wait()
	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
	t.Cleanup(func() {
		for _, c := range comms {
			_ = c.Close()
		}
	})
	return comms
}

func TestWebSocketHaloRoundTrip(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	comms := newMesh(t, 3)

	// every rank sends its edge rows to both neighbors
	rows := func(rank int) []float64 { return []float64{float64(rank), float64(rank) + 0.25, -float64(rank)} }
	var reqs []Request
	fromAbove := make([][]float64, 3)
	fromBelow := make([][]float64, 3)
	for r, c := range comms {
		if r > 0 {
			fromAbove[r] = make([]float64, 3)
			reqs = append(reqs, c.Irecv(ctx, fromAbove[r], r-1, 100))
			reqs = append(reqs, c.Isend(ctx, rows(r), r-1, 101))
		}
		if r < 2 {
			fromBelow[r] = make([]float64, 3)
			reqs = append(reqs, c.Irecv(ctx, fromBelow[r], r+1, 101))
			reqs = append(reqs, c.Isend(ctx, rows(r), r+1, 100))
		}
	}
	require.NoError(t, WaitAll(ctx, reqs...))
	for r := 0; r < 3; r++ {
		if r > 0 {
			assert.Equal(t, rows(r-1), fromAbove[r], "rank %d ghost above", r)
		}
		if r < 2 {
			assert.Equal(t, rows(r+1), fromBelow[r], "rank %d ghost below", r)
		}
	}
}

func TestWebSocketAllreduceMax(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	comms := newMesh(t, 4)

	for round := 0; round < 3; round++ {
		round := round
		results := make([]float64, len(comms))
		var wg sync.WaitGroup
		for r, c := range comms {
			r, c := r, c
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := c.AllreduceMax(ctx, float64((r*7+round)%4))
				assert.NoError(t, err)
				results[r] = v
			}()
		}
		wg.Wait()
		for r, v := range results {
			assert.Equal(t, 3.0, v, "rank %d round %d", r, round)
		}
	}
}

func TestWebSocketAllreduceNaNAtRoot(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	comms := newMesh(t, 3)

	inputs := []float64{math.NaN(), 1, 2}
	results := make([]float64, len(comms))
	var wg sync.WaitGroup
	for r, c := range comms {
		r, c := r, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.AllreduceMax(ctx, inputs[r])
			assert.NoError(t, err)
			results[r] = v
		}()
	}
	wg.Wait()
	for r, v := range results {
		assert.True(t, math.IsNaN(v), "rank %d got %v", r, v)
	}
}

func TestWebSocketSelfSend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	comms := newMesh(t, 1)
	buf := make([]float64, 2)
	require.NoError(t, comms[0].Isend(ctx, []float64{4, 5}, 0, 3).Wait(ctx))
	require.NoError(t, comms[0].Irecv(ctx, buf, 0, 3).Wait(ctx))
	assert.Equal(t, []float64{4, 5}, buf)

	v, err := comms[0].AllreduceMax(ctx, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestWebSocketPeerCloseFailsReceive(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	comms := newMesh(t, 2)

	req := comms[0].Irecv(ctx, make([]float64, 1), 1, 100)
	require.NoError(t, comms[1].Close())

	err := req.Wait(ctx)
	var cerr apperrors.CommunicationError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, 1, cerr.Peer)
}

func TestDialMeshValidatesConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := DialMesh(ctx, MeshConfig{Rank: 0})
	var cfgErr apperrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = DialMesh(ctx, MeshConfig{Rank: 2, Peers: []string{"a:1", "b:2"}})
	assert.True(t, errors.As(err, &cfgErr))
}

func TestDialMeshTimesOutWithoutPeers(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// rank 0 waits for a rank 1 that never dials
	_, err = DialMesh(ctx, MeshConfig{Rank: 0, Peers: []string{ln.Addr().String(), "127.0.0.1:1"}, Listener: ln})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
