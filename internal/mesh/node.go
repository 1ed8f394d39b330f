// Package mesh runs the signaling side of a full-mesh peer network: presence
// announcements, perfect negotiation per peer pair, candidate trickle and
// connection lifecycle. A Node serializes all of it on one goroutine.
package mesh

import (
	"context"
	"errors"
	"time"

	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

var (
	// ErrRelayClosed is returned by Run when the relay connection ends.
	ErrRelayClosed = errors.New("relay connection closed")
	// ErrNodeStopped is returned by queries made after Run has returned.
	ErrNodeStopped = errors.New("mesh node stopped")
	// ErrNoChannel is returned by Connection.SendState before the data
	// channel is open.
	ErrNoChannel = errors.New("data channel not open")
	// ErrSessionLost is returned by Connection.Rollback when the local offer
	// cannot be discarded without also discarding the established session.
	ErrSessionLost = errors.New("rollback would discard the established session")
)

const (
	DefaultAnnounceInterval = 5 * time.Second
	DefaultAnnounceDelay    = time.Second
	DefaultStateInterval    = 50 * time.Millisecond
)

// Options configures a Node. Relay and Factory are required.
type Options struct {
	ID       identity.PeerID
	Relay    Relay
	Factory  ConnectionFactory
	Registry *Registry
	Observer Observer

	AnnounceInterval time.Duration
	AnnounceDelay    time.Duration
	StateInterval    time.Duration

	// State returns the local PlayerState to broadcast. Nil disables the
	// periodic broadcast.
	State func() protocol.PlayerState
}

// Node is one participant of the mesh.
type Node struct {
	id       identity.PeerID
	relay    Relay
	factory  ConnectionFactory
	registry *Registry
	observer Observer
	state    func() protocol.PlayerState

	announceInterval time.Duration
	announceDelay    time.Duration
	stateInterval    time.Duration

	queue   *eventQueue
	queries chan func()
	stopped chan struct{}
}

// New creates a Node. A zero ID is replaced by a fresh random one.
func New(opts Options) *Node {
	n := &Node{
		id:               opts.ID,
		relay:            opts.Relay,
		factory:          opts.Factory,
		registry:         opts.Registry,
		observer:         opts.Observer,
		state:            opts.State,
		announceInterval: opts.AnnounceInterval,
		announceDelay:    opts.AnnounceDelay,
		stateInterval:    opts.StateInterval,
		queue:            newEventQueue(),
		queries:          make(chan func()),
		stopped:          make(chan struct{}),
	}
	if n.id == "" {
		n.id = identity.New()
	}
	if n.registry == nil {
		n.registry = NewRegistry()
	}
	if n.observer == nil {
		n.observer = NopObserver{}
	}
	if n.announceInterval <= 0 {
		n.announceInterval = DefaultAnnounceInterval
	}
	if n.announceDelay < 0 {
		n.announceDelay = 0
	}
	if n.stateInterval <= 0 {
		n.stateInterval = DefaultStateInterval
	}
	return n
}

// ID returns the local peer id.
func (n *Node) ID() identity.PeerID { return n.id }

// Run processes relay messages, connection events and timers until ctx is
// cancelled or the relay closes. Every peer is torn down before it returns.
// Run returns nil on cancellation.
func (n *Node) Run(ctx context.Context) error {
	defer close(n.stopped)
	defer n.teardownAll("node stopped")

	util.LogInfo("Mesh node %s started", n.id)

	announce := time.NewTimer(n.announceDelay)
	defer announce.Stop()

	var stateTick <-chan time.Time
	if n.state != nil {
		ticker := time.NewTicker(n.stateInterval)
		defer ticker.Stop()
		stateTick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-n.relay.Done():
			return ErrRelayClosed

		case data := <-n.relay.Messages():
			n.dispatch(data)

		case <-n.queue.ready():
			n.drain()

		case <-announce.C:
			n.announce()
			announce.Reset(n.announceInterval)

		case <-stateTick:
			n.broadcastState()

		case query := <-n.queries:
			query()
		}
	}
}

// drain applies every queued event in arrival order.
func (n *Node) drain() {
	for _, ev := range n.queue.take() {
		ev.apply(n)
	}
}

// do runs fn on the loop and waits for it to finish.
func (n *Node) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case n.queries <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-n.stopped:
		return ErrNodeStopped
	}
	<-done
	return nil
}

// Peers returns a snapshot of every registered peer in ascending id order.
func (n *Node) Peers(ctx context.Context) ([]PeerSnapshot, error) {
	var out []PeerSnapshot
	err := n.do(ctx, func() {
		n.registry.each(func(p *Peer) { out = append(out, p.snapshot()) })
	})
	return out, err
}

// Disconnect tears down the connection to id. Unknown ids are a no-op.
func (n *Node) Disconnect(ctx context.Context, id identity.PeerID) error {
	return n.do(ctx, func() { n.teardown(id, "disconnect requested") })
}

// send writes env to the relay. Failures are logged and dropped; the relay
// has no delivery guarantee anyway.
func (n *Node) send(env *protocol.Envelope) {
	if err := n.relay.Send(env); err != nil {
		util.LogWarning("Failed to send %s to %s: %v", env.Type, env.To, err)
		return
	}
	util.Stats.AddEnvelopeOut()
}

// dispatch decodes one relay message and routes it by type.
func (n *Node) dispatch(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		util.LogWarning("Dropping relay message: %v", err)
		util.Stats.AddEnvelopeBad()
		return
	}
	if env.From == n.id || !env.IsFor(n.id) {
		return
	}
	util.Stats.AddEnvelopeIn()

	if env.Type == protocol.TypeAnnounce {
		n.handleAnnounce(env.From)
		return
	}

	p := n.registry.Get(env.From)
	if p != nil && env.Type == protocol.TypeDescription && p.replacedBy(*env.SDP) {
		n.teardown(p.ID, "remote started a new session")
		p = nil
	}
	if p == nil {
		if p, err = n.createPeer(env.From); err != nil {
			util.LogError("Failed to create connection for %s: %v", env.From, err)
			return
		}
	}

	switch env.Type {
	case protocol.TypeDescription:
		n.handleDescription(p, *env.SDP)
	case protocol.TypeCandidate:
		n.handleCandidate(p, *env.Candidate)
	}
}

// createPeer registers a new peer together with its connection. The
// initiator side also opens the data channel here.
func (n *Node) createPeer(id identity.PeerID) (*Peer, error) {
	p := newPeer(n.id, id)
	conn, err := n.factory.NewConnection(id, p.Role, func(ev ConnEvent) {
		n.queue.push(connEvent{peer: p, ev: ev})
	})
	if err != nil {
		return nil, err
	}
	p.conn = conn

	if p.Role.CreatesChannel() {
		if err := conn.CreateDataChannel(); err != nil {
			conn.Close()
			return nil, err
		}
	}

	n.registry.add(p)
	util.Stats.AddPeer()
	n.observer.PeerAdded(id, p.Role)
	p.log.Info("Peer %s added as %s", id, p.Role)
	return p, nil
}

// current reports whether p is still the registered entry for its id.
// Events from a torn-down connection fail this check.
func (n *Node) current(p *Peer) bool {
	return n.registry.Get(p.ID) == p
}

// reportError logs err and forwards it to the observer.
func (n *Node) reportError(p *Peer, op string, err error) {
	p.log.Error("%s failed: %v", op, err)
	n.observer.NegotiationError(p.ID, op, err)
}
