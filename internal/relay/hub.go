package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/meshp2p/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const clientSendBuffer = 256

// Hub is a dumb broadcast relay: every text message received from one client
// is forwarded to every other connected client. It never inspects messages.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	ws   *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and relays the client's messages until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &hubClient{ws: ws, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	util.LogDebug("relay client connected from %s (%d total)", r.RemoteAddr, h.Len())

	go c.writePump()
	h.readPump(c)
}

// readPump forwards inbound messages and unregisters the client on exit.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.send)
		c.ws.Close()
		util.LogDebug("relay client disconnected (%d left)", h.Len())
	}()

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if typ == websocket.TextMessage {
			h.broadcast(c, data)
		}
	}
}

// broadcast queues data for every client except from. Slow clients lose
// messages rather than stalling the relay.
func (h *Hub) broadcast(from *hubClient, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c == from {
			continue
		}
		select {
		case c.send <- data:
		default:
			util.LogWarning("relay client send buffer full, dropping message")
		}
	}
}

func (c *hubClient) writePump() {
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

// ListenAndServe serves the hub on addr at path /ws until ctx is cancelled.
// ready, if non-nil, receives the bound address once the listener is up.
func ListenAndServe(ctx context.Context, addr string, hub *Hub, ready chan<- net.Addr) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: handshakeTimeout}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if ready != nil {
		ready <- listener.Addr()
	}

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
