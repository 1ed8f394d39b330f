// Package relay is the thin duplex channel to a broadcast relay. The relay
// has no semantics of its own: every text message a client sends is
// forwarded to every other connected client.
//
// Conn is the WebSocket client used by mesh nodes. Hub is a development
// relay server with the same fan-out behaviour, and MemoryHub is its
// in-process counterpart for tests.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

// ErrClosed is returned by Send once the relay connection is closed.
var ErrClosed = errors.New("relay connection closed")

const (
	inboxSize        = 256
	writeTimeout     = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	closeWait        = 3 * time.Second
)

// Conn is a client connection to a broadcast relay.
type Conn struct {
	ws *websocket.Conn

	// mu serializes writers; gorilla allows one concurrent writer.
	mu sync.Mutex

	messages chan []byte
	done     chan struct{} // closed when the receiver loop exits
	stop     chan struct{} // closed by Close
	stopOnce sync.Once
	closing  atomic.Bool
}

// Dial connects to the relay at url and starts the receiver loop.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	c := &Conn{
		ws:       ws,
		messages: make(chan []byte, inboxSize),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
	go c.receive()

	return c, nil
}

// receive reads text messages until the connection fails or is closed.
func (c *Conn) receive() {
	defer close(c.done)

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.LogWarning("relay read failed: %v", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		select {
		case c.messages <- data:
		case <-c.stop:
			return
		}
	}
}

// Send encodes env and writes it to the relay.
func (c *Conn) Send(env *protocol.Envelope) error {
	if !c.Open() {
		return ErrClosed
	}

	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write to relay: %w", err)
	}
	return nil
}

// Messages returns the stream of raw inbound text messages.
func (c *Conn) Messages() <-chan []byte { return c.messages }

// Done is closed when the connection is no longer usable.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Open reports whether the connection is still usable.
func (c *Conn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return !c.closing.Load()
	}
}

// Close sends a close frame, waits briefly for the relay to acknowledge it,
// and releases the socket. Safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.stopOnce.Do(func() {
		c.closing.Store(true)
		close(c.stop)

		c.mu.Lock()
		werr := c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		c.mu.Unlock()

		if werr == nil {
			select {
			case <-c.done:
			case <-time.After(closeWait):
				util.LogDebug("timed out waiting for relay close")
			}
		}

		err = c.ws.Close()
	})
	return err
}
