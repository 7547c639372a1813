package comm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/agbru/heatcalc/internal/errors"
	"github.com/agbru/heatcalc/internal/grid"
	"github.com/agbru/heatcalc/internal/logging"
	"github.com/agbru/heatcalc/internal/parallel"
)

// MeshPath is the HTTP path on which every worker accepts peer connections.
const MeshPath = "/heatcalc/v1/mesh"

// Tags at or above ReservedTagBase are used internally by the collectives
// and must not be used by callers.
const (
	ReservedTagBase = 200
	tagReduceGather = ReservedTagBase
	tagReduceBcast  = ReservedTagBase + 1
)

const (
	defaultDialRetry = 200 * time.Millisecond
	outboundDepth    = 64
	maxFrameBytes    = 64 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// MeshConfig describes one worker's place in a WebSocket cohort.
type MeshConfig struct {
	// Rank of this worker.
	Rank int
	// Peers lists the host:port every worker listens on, indexed by rank.
	Peers []string
	// Listener, when set, is used instead of listening on Peers[Rank].
	Listener net.Listener
	// DialRetry is the pause between connection attempts to a peer that is
	// not up yet.
	DialRetry time.Duration
	Logger    logging.Logger
}

// WebSocketComm connects a worker to every other worker of a multi-process
// cohort over one WebSocket connection per pair.
//
// Lower ranks accept, higher ranks dial: worker r dials every rank below r
// and accepts a connection from every rank above it.
type WebSocketComm struct {
	rank   int
	size   int
	logger logging.Logger

	office   postOffice
	peers    []*peerConn
	listener net.Listener
	server   *http.Server

	errs      parallel.ErrorCollector
	stopOnce  sync.Once
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Communicator = (*WebSocketComm)(nil)

type peerConn struct {
	rank     int
	conn     *websocket.Conn
	out      chan outbound
	goneOnce sync.Once
	gone     chan struct{}
	goneErr  error
}

type outbound struct {
	payload []byte
	req     *asyncRequest
}

type helloConn struct {
	rank int
	conn *websocket.Conn
}

// DialMesh listens for higher ranks, dials lower ranks and returns once a
// connection to every peer is established. ctx bounds the whole handshake.
func DialMesh(ctx context.Context, cfg MeshConfig) (*WebSocketComm, error) {
	size := len(cfg.Peers)
	if size == 0 {
		return nil, apperrors.NewConfigError("websocket transport needs at least one peer address")
	}
	if cfg.Rank < 0 || cfg.Rank >= size {
		return nil, apperrors.NewConfigError("rank %d out of range for %d peers", cfg.Rank, size)
	}
	if cfg.DialRetry <= 0 {
		cfg.DialRetry = defaultDialRetry
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	ln := cfg.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", cfg.Peers[cfg.Rank])
		if err != nil {
			return nil, apperrors.CommunicationError{Op: "listen", Rank: cfg.Rank, Peer: -1, Cause: err}
		}
	}

	c := &WebSocketComm{
		rank:     cfg.Rank,
		size:     size,
		logger:   cfg.Logger,
		peers:    make([]*peerConn, size),
		listener: ln,
		stop:     make(chan struct{}),
	}

	accepted := make(chan helloConn, size)
	mux := http.NewServeMux()
	mux.HandleFunc(MeshPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			c.logger.Error("mesh upgrade failed", err, logging.Int("rank", c.rank))
			return
		}
		peer, err := c.readHello(conn)
		if err != nil {
			c.logger.Error("rejecting peer", err, logging.Int("rank", c.rank))
			_ = conn.Close()
			return
		}
		select {
		case accepted <- helloConn{rank: peer, conn: conn}:
		case <-c.stop:
			_ = conn.Close()
		}
	})
	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.errs.SetError(err)
		}
	}()

	for r := 0; r < c.rank; r++ {
		conn, err := dialPeer(ctx, cfg.Peers[r], cfg.DialRetry)
		if err == nil {
			err = conn.WriteMessage(websocket.BinaryMessage, encodeFrame(frameHello, c.rank, c.size, nil))
		}
		if err != nil {
			_ = c.Close()
			return nil, apperrors.CommunicationError{Op: "connect", Rank: c.rank, Peer: r, Cause: err}
		}
		c.addPeer(r, conn)
	}

	for remaining := size - 1 - c.rank; remaining > 0; {
		select {
		case h := <-accepted:
			if c.peers[h.rank] != nil {
				c.logger.Error("duplicate peer connection", fmt.Errorf("rank %d already connected", h.rank), logging.Int("rank", c.rank))
				_ = h.conn.Close()
				continue
			}
			c.addPeer(h.rank, h.conn)
			remaining--
		case <-ctx.Done():
			_ = c.Close()
			return nil, apperrors.CommunicationError{Op: "accept", Rank: c.rank, Peer: -1, Cause: ctx.Err()}
		}
	}

	c.logger.Debug("mesh established", logging.Int("rank", c.rank), logging.Int("size", c.size))
	return c, nil
}

func dialPeer(ctx context.Context, addr string, retry time.Duration) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: MeshPath}
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial %s: %w (last attempt: %v)", addr, ctx.Err(), err)
		case <-time.After(retry):
		}
	}
}

// readHello validates the first frame sent by a dialing peer.
func (c *WebSocketComm) readHello(conn *websocket.Conn) (int, error) {
	conn.SetReadLimit(maxFrameBytes)
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	f, err := decodeFrame(data)
	if err != nil {
		return 0, err
	}
	switch {
	case f.kind != frameHello:
		return 0, fmt.Errorf("expected hello frame, got kind %d", f.kind)
	case f.tag != c.size:
		return 0, fmt.Errorf("peer rank %d expects a cohort of %d, this cohort has %d", f.src, f.tag, c.size)
	case f.src <= c.rank || f.src >= c.size:
		return 0, fmt.Errorf("peer rank %d may not dial rank %d", f.src, c.rank)
	}
	return f.src, nil
}

func (c *WebSocketComm) addPeer(rank int, conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameBytes)
	p := &peerConn{
		rank: rank,
		conn: conn,
		out:  make(chan outbound, outboundDepth),
		gone: make(chan struct{}),
	}
	c.peers[rank] = p
	c.wg.Add(2)
	go c.readLoop(p)
	go c.writeLoop(p)
}

// markGone closes p for further traffic and records why.
func (c *WebSocketComm) markGone(p *peerConn, err error) {
	p.goneOnce.Do(func() {
		p.goneErr = err
		close(p.gone)
	})
}

func (c *WebSocketComm) readLoop(p *peerConn) {
	defer c.wg.Done()
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = fmt.Errorf("peer closed the connection")
			} else {
				select {
				case <-c.stop:
				default:
					c.logger.Error("peer connection lost", err, logging.Int("rank", c.rank), logging.Int("peer", p.rank))
				}
			}
			c.markGone(p, apperrors.CommunicationError{Op: "receive", Rank: c.rank, Peer: p.rank, Cause: err})
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		f, err := decodeFrame(data)
		if err == nil && (f.kind != frameData || f.src != p.rank) {
			err = fmt.Errorf("unexpected frame kind %d from rank %d on connection to rank %d", f.kind, f.src, p.rank)
		}
		if err != nil {
			cerr := apperrors.CommunicationError{Op: "receive", Rank: c.rank, Peer: p.rank, Cause: err}
			c.errs.SetError(cerr)
			c.markGone(p, cerr)
			return
		}
		c.office.box(p.rank, c.rank, f.tag).put(f.values)
	}
}

func (c *WebSocketComm) writeLoop(p *peerConn) {
	defer c.wg.Done()
	for {
		select {
		case ob := <-p.out:
			err := p.conn.WriteMessage(websocket.BinaryMessage, ob.payload)
			if err != nil {
				err = apperrors.CommunicationError{Op: "send", Rank: c.rank, Peer: p.rank, Cause: err}
				c.errs.SetError(err)
				c.markGone(p, err)
			}
			ob.req.finish(err)
		case <-p.gone:
			return
		}
	}
}

// Rank returns this worker's rank.
func (c *WebSocketComm) Rank() int { return c.rank }

// Size returns the cohort size.
func (c *WebSocketComm) Size() int { return c.size }

// Addr returns the address the worker listens on.
func (c *WebSocketComm) Addr() net.Addr { return c.listener.Addr() }

// Err returns the first transport failure observed, if any. Once set, every
// later operation fails with it.
func (c *WebSocketComm) Err() error { return c.errs.Err() }

func (c *WebSocketComm) closedErr(op string, peer int) error {
	return apperrors.CommunicationError{Op: op, Rank: c.rank, Peer: peer, Cause: ErrClosed}
}

func (c *WebSocketComm) peer(op string, rank int) (*peerConn, error) {
	if rank < 0 || rank >= c.size {
		return nil, apperrors.CommunicationError{Op: op, Rank: c.rank, Peer: rank, Cause: fmt.Errorf("no such rank")}
	}
	if err := c.errs.Err(); err != nil {
		return nil, err
	}
	select {
	case <-c.stop:
		return nil, c.closedErr(op, rank)
	default:
	}
	return c.peers[rank], nil
}

// Isend encodes row into a frame and queues it on the connection to dest.
// Frames to the same peer are written in the order they were queued.
func (c *WebSocketComm) Isend(ctx context.Context, row []float64, dest, tag int) Request {
	p, err := c.peer("send", dest)
	if err != nil {
		return completed{err: err}
	}
	if p == nil {
		msg := grid.AcquireRow(len(row))
		copy(msg, row)
		c.office.box(c.rank, c.rank, tag).put(msg)
		return completed{}
	}
	req := newAbortableRequest(p.gone, func() error { return p.goneErr })
	select {
	case p.out <- outbound{payload: encodeFrame(frameData, c.rank, tag, row), req: req}:
		return req
	case <-p.gone:
		return completed{err: p.goneErr}
	case <-ctx.Done():
		return completed{err: ctx.Err()}
	}
}

// Irecv matches the oldest message from src with the given tag.
func (c *WebSocketComm) Irecv(ctx context.Context, buf []float64, src, tag int) Request {
	p, err := c.peer("receive", src)
	if err != nil {
		return completed{err: err}
	}
	abort := c.stop
	abortErr := func() error { return c.closedErr("receive", src) }
	if p != nil {
		abort = p.gone
		abortErr = func() error { return p.goneErr }
	}
	req := newAsyncRequest()
	box := c.office.box(src, c.rank, tag)
	go func() {
		msg, err := box.take(ctx, abort, abortErr)
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

// AllreduceMax gathers every value on rank 0 and broadcasts the maximum.
func (c *WebSocketComm) AllreduceMax(ctx context.Context, v float64) (float64, error) {
	if c.size == 1 {
		return v, nil
	}
	if c.rank != 0 {
		if err := c.Isend(ctx, []float64{v}, 0, tagReduceGather).Wait(ctx); err != nil {
			return 0, err
		}
		buf := make([]float64, 1)
		if err := c.Irecv(ctx, buf, 0, tagReduceBcast).Wait(ctx); err != nil {
			return 0, err
		}
		return buf[0], nil
	}

	result := v
	buf := make([]float64, 1)
	for r := 1; r < c.size; r++ {
		if err := c.Irecv(ctx, buf, r, tagReduceGather).Wait(ctx); err != nil {
			return 0, err
		}
		result = maxNaN(result, buf[0])
	}
	reqs := make([]Request, 0, c.size-1)
	for r := 1; r < c.size; r++ {
		reqs = append(reqs, c.Isend(ctx, []float64{result}, r, tagReduceBcast))
	}
	if err := WaitAll(ctx, reqs...); err != nil {
		return 0, err
	}
	return result, nil
}

// Close sends a normal closure to every peer, stops the listener and waits
// for the connection goroutines to exit.
func (c *WebSocketComm) Close() error {
	c.closeOnce.Do(func() {
		c.stopOnce.Do(func() { close(c.stop) })
		deadline := time.Now().Add(time.Second)
		for _, p := range c.peers {
			if p == nil {
				continue
			}
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = p.conn.Close()
			c.markGone(p, c.closedErr("close", p.rank))
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.server.Shutdown(ctx)
		c.wg.Wait()
	})
	return nil
}
