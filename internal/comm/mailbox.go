package comm

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO of messages for one (source, tag) pair.
type mailbox struct {
	mu    sync.Mutex
	queue [][]float64
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(msg []float64) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// take pops the oldest message, blocking until one arrives, ctx is done or
// abort is closed. abortErr supplies the error reported on abort.
func (m *mailbox) take(ctx context.Context, abort <-chan struct{}, abortErr func() error) ([]float64, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			more := len(m.queue) > 0
			m.mu.Unlock()
			if more {
				m.signal()
			}
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-abort:
			return nil, abortErr()
		}
	}
}

type mailboxKey struct {
	src, dst, tag int
}

// postOffice lazily creates mailboxes keyed by (source, destination, tag).
type postOffice struct {
	mu    sync.Mutex
	boxes map[mailboxKey]*mailbox
}

func (p *postOffice) box(src, dst, tag int) *mailbox {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.boxes == nil {
		p.boxes = make(map[mailboxKey]*mailbox)
	}
	k := mailboxKey{src: src, dst: dst, tag: tag}
	b, ok := p.boxes[k]
	if !ok {
		b = newMailbox()
		p.boxes[k] = b
	}
	return b
}
