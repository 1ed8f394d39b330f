package mesh

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
)

var errNoRemote = errors.New("remote description not set")

// fakeConn is an in-memory Connection with a strict signaling state machine.
type fakeConn struct {
	mu sync.Mutex

	peer   identity.PeerID
	role   identity.Role
	events EventSink

	signaling  SignalingState
	remoteSet  bool
	local      []protocol.SessionDescription
	remote     []protocol.SessionDescription
	candidates []protocol.CandidateDescriptor
	states     [][]byte

	channel   bool
	closed    int
	restarts  int
	rollbacks int
	offers    int

	// offerGate, if set, blocks CreateOffer until it is closed.
	offerGate chan struct{}
	offerErr  error
	// rollbackErr, if set, is returned by Rollback once a remote
	// description is installed.
	rollbackErr error
	// trickle makes SetLocalDescription emit one local candidate.
	trickle bool
}

func (c *fakeConn) CreateOffer() (protocol.SessionDescription, error) {
	c.mu.Lock()
	gate := c.offerGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offerErr != nil {
		return protocol.SessionDescription{}, c.offerErr
	}
	c.offers++
	return protocol.SessionDescription{Type: protocol.SDPOffer, SDP: fmt.Sprintf("offer-%d", c.offers)}, nil
}

func (c *fakeConn) CreateAnswer() (protocol.SessionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signaling != SignalingHaveRemoteOffer {
		return protocol.SessionDescription{}, fmt.Errorf("create answer in %s", c.signaling)
	}
	return protocol.SessionDescription{Type: protocol.SDPAnswer, SDP: "answer"}, nil
}

func (c *fakeConn) SetLocalDescription(d protocol.SessionDescription) error {
	c.mu.Lock()
	switch {
	case d.Type == protocol.SDPOffer && c.signaling == SignalingStable:
		c.signaling = SignalingHaveLocalOffer
	case d.Type == protocol.SDPAnswer && c.signaling == SignalingHaveRemoteOffer:
		c.signaling = SignalingStable
	default:
		state := c.signaling
		c.mu.Unlock()
		return fmt.Errorf("set local %s in %s", d.Type, state)
	}
	c.local = append(c.local, d)
	trickle, events := c.trickle, c.events
	c.mu.Unlock()

	if trickle {
		events(ConnEvent{Kind: EventLocalCandidate, Candidate: protocol.CandidateDescriptor{Candidate: "candidate:" + string(d.Type)}})
	}
	return nil
}

func (c *fakeConn) SetRemoteDescription(d protocol.SessionDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case d.Type == protocol.SDPOffer && c.signaling == SignalingStable:
		c.signaling = SignalingHaveRemoteOffer
	case d.Type == protocol.SDPAnswer && c.signaling == SignalingHaveLocalOffer:
		c.signaling = SignalingStable
	case d.Type == protocol.SDPRollback && c.signaling == SignalingHaveRemoteOffer:
		c.signaling = SignalingStable
		return nil
	default:
		return fmt.Errorf("set remote %s in %s", d.Type, c.signaling)
	}
	c.remoteSet = true
	c.remote = append(c.remote, d)
	return nil
}

func (c *fakeConn) HasRemoteDescription() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteSet
}

func (c *fakeConn) SignalingState() SignalingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signaling
}

func (c *fakeConn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signaling != SignalingHaveLocalOffer {
		return fmt.Errorf("rollback in %s", c.signaling)
	}
	if c.rollbackErr != nil && c.remoteSet {
		return c.rollbackErr
	}
	c.signaling = SignalingStable
	c.rollbacks++
	return nil
}

func (c *fakeConn) AddICECandidate(cand protocol.CandidateDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.remoteSet {
		return errNoRemote
	}
	c.candidates = append(c.candidates, cand)
	return nil
}

func (c *fakeConn) RestartICE() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarts++
	return nil
}

func (c *fakeConn) CreateDataChannel() error {
	c.mu.Lock()
	c.channel = true
	c.mu.Unlock()
	c.events(ConnEvent{Kind: EventNegotiationNeeded})
	return nil
}

func (c *fakeConn) SendState(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed > 0 {
		return errors.New("closed")
	}
	c.states = append(c.states, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	c.signaling = SignalingClosed
	return nil
}

func (c *fakeConn) snapshot() fakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fakeConn{
		signaling:  c.signaling,
		remoteSet:  c.remoteSet,
		local:      append([]protocol.SessionDescription(nil), c.local...),
		remote:     append([]protocol.SessionDescription(nil), c.remote...),
		candidates: append([]protocol.CandidateDescriptor(nil), c.candidates...),
		states:     append([][]byte(nil), c.states...),
		channel:    c.channel,
		closed:     c.closed,
		restarts:   c.restarts,
		rollbacks:  c.rollbacks,
		offers:     c.offers,
	}
}

// fakeFactory records every connection it hands out. prepare, if set, runs
// on each new connection before it is returned.
type fakeFactory struct {
	mu      sync.Mutex
	conns   map[identity.PeerID][]*fakeConn
	prepare func(*fakeConn)
	err     error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[identity.PeerID][]*fakeConn)}
}

func (f *fakeFactory) NewConnection(peer identity.PeerID, role identity.Role, events EventSink) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{peer: peer, role: role, events: events}
	if f.prepare != nil {
		f.prepare(c)
	}
	f.conns[peer] = append(f.conns[peer], c)
	return c, nil
}

// last returns the most recent connection made for peer.
func (f *fakeFactory) last(t *testing.T, peer identity.PeerID) *fakeConn {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	conns := f.conns[peer]
	if len(conns) == 0 {
		t.Fatalf("no connection created for %s", peer)
	}
	return conns[len(conns)-1]
}

func (f *fakeFactory) count(peer identity.PeerID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns[peer])
}

// fakeRelay records sent envelopes.
type fakeRelay struct {
	mu       sync.Mutex
	sent     []*protocol.Envelope
	messages chan []byte
	done     chan struct{}
	closed   bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{messages: make(chan []byte, 16), done: make(chan struct{})}
}

func (r *fakeRelay) Send(env *protocol.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
	return nil
}

func (r *fakeRelay) Messages() <-chan []byte { return r.messages }
func (r *fakeRelay) Done() <-chan struct{}   { return r.done }

func (r *fakeRelay) Open() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *fakeRelay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// take returns and clears the envelopes sent so far.
func (r *fakeRelay) take() []*protocol.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := r.sent
	r.sent = nil
	return sent
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	mu      sync.Mutex
	added   []identity.PeerID
	removed []identity.PeerID
	states  []protocol.PlayerState
	errors  []string
}

func (o *recordingObserver) PeerAdded(id identity.PeerID, _ identity.Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, id)
}

func (o *recordingObserver) PeerRemoved(id identity.PeerID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed = append(o.removed, id)
}

func (o *recordingObserver) StateReceived(_ identity.PeerID, s protocol.PlayerState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) NegotiationError(_ identity.PeerID, op string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, op)
}

func (o *recordingObserver) errorOps() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.errors...)
}

func (o *recordingObserver) removedIDs() []identity.PeerID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]identity.PeerID(nil), o.removed...)
}

// harness drives a Node without its Run loop.
type harness struct {
	node     *Node
	relay    *fakeRelay
	factory  *fakeFactory
	observer *recordingObserver
}

func newHarness(local identity.PeerID) *harness {
	h := &harness{
		relay:    newFakeRelay(),
		factory:  newFakeFactory(),
		observer: &recordingObserver{},
	}
	h.node = New(Options{
		ID:       local,
		Relay:    h.relay,
		Factory:  h.factory,
		Observer: h.observer,
	})
	return h
}

// deliver encodes env and dispatches it as if it came from the relay.
func (h *harness) deliver(t *testing.T, env *protocol.Envelope) {
	t.Helper()
	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h.node.dispatch(data)
}

// settle applies queued events until none arrive for a short while.
func (h *harness) settle() {
	for {
		select {
		case <-h.node.queue.ready():
			h.node.drain()
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

// fire posts a connection event for the registered peer id and settles.
func (h *harness) fire(t *testing.T, id identity.PeerID, ev ConnEvent) {
	t.Helper()
	p := h.node.registry.Get(id)
	if p == nil {
		t.Fatalf("no peer %s", id)
	}
	h.node.queue.push(connEvent{peer: p, ev: ev})
	h.settle()
}

func descriptionsOf(envs []*protocol.Envelope, typ protocol.SDPType) []*protocol.Envelope {
	var out []*protocol.Envelope
	for _, env := range envs {
		if env.Type == protocol.TypeDescription && env.SDP.Type == typ {
			out = append(out, env)
		}
	}
	return out
}
