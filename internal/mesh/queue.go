package mesh

import (
	"sync"

	"github.com/1ureka/meshp2p/internal/protocol"
)

// event is work posted to the node loop from another goroutine.
type event interface {
	apply(n *Node)
}

// connEvent carries a connection-level signal for peer.
type connEvent struct {
	peer *Peer
	ev   ConnEvent
}

func (e connEvent) apply(n *Node) { n.handleConnEvent(e.peer, e.ev) }

// offerResult carries the outcome of an off-loop CreateOffer.
type offerResult struct {
	peer *Peer
	seq  uint64
	desc protocol.SessionDescription
	err  error
}

func (e offerResult) apply(n *Node) { n.finishOffer(e) }

// eventQueue is an unbounded FIFO. push never blocks, so connection
// callbacks may post events even while the loop is inside a call into the
// same connection.
type eventQueue struct {
	mu     sync.Mutex
	items  []event
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// take removes and returns every queued event.
func (q *eventQueue) take() []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// ready is signalled after a push.
func (q *eventQueue) ready() <-chan struct{} { return q.signal }
