package relay

import (
	"sync"

	"github.com/1ureka/meshp2p/internal/protocol"
)

// MemoryHub is an in-process relay for tests. Connections joined to the same
// hub see each other's messages with the same fan-out rules as Hub.
type MemoryHub struct {
	mu    sync.Mutex
	conns map[*MemoryConn]struct{}
}

// NewMemoryHub creates an empty in-process relay.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{conns: make(map[*MemoryConn]struct{})}
}

// Join attaches a new connection to the hub.
func (h *MemoryHub) Join() *MemoryConn {
	c := &MemoryConn{
		hub:      h,
		messages: make(chan []byte, inboxSize),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Broadcast delivers raw data to every joined connection, as if a client
// outside the hub had sent it.
func (h *MemoryHub) Broadcast(data []byte) {
	h.fanOut(nil, data)
}

func (h *MemoryHub) fanOut(from *MemoryConn, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		if c == from {
			continue
		}
		select {
		case c.messages <- data:
		default:
		}
	}
}

// MemoryConn is one client of a MemoryHub.
type MemoryConn struct {
	hub      *MemoryHub
	messages chan []byte
	done     chan struct{}
	once     sync.Once
}

// Send encodes env and fans it out to the other connections.
func (c *MemoryConn) Send(env *protocol.Envelope) error {
	if !c.Open() {
		return ErrClosed
	}
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.hub.fanOut(c, data)
	return nil
}

func (c *MemoryConn) Messages() <-chan []byte { return c.messages }
func (c *MemoryConn) Done() <-chan struct{}   { return c.done }

func (c *MemoryConn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close detaches the connection from the hub. Safe to call multiple times.
func (c *MemoryConn) Close() error {
	c.once.Do(func() {
		c.hub.mu.Lock()
		delete(c.hub.conns, c)
		c.hub.mu.Unlock()
		close(c.done)
	})
	return nil
}
