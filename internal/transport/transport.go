package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
	"github.com/pion/webrtc/v4"
)

// PeerConn is the mesh.Connection for one remote peer, backed by a pion
// PeerConnection and the state data channel.
//
// pion invokes some callbacks synchronously from inside its own methods, so
// no lock is held while calling into the PeerConnection. Callbacks carry the
// generation of the PeerConnection that registered them and are dropped once
// that PeerConnection has been replaced or closed.
type PeerConn struct {
	factory *Factory
	peer    identity.PeerID
	events  mesh.EventSink
	log     util.PeerLog

	ctx    context.Context
	cancel context.CancelFunc

	gen     atomic.Uint64
	closed  atomic.Bool
	restart atomic.Bool

	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	sender *sender
}

func newPeerConn(f *Factory, peer identity.PeerID, events mesh.EventSink) (*PeerConn, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &PeerConn{
		factory: f,
		peer:    peer,
		events:  events,
		log:     util.PeerLog(peer),
		ctx:     ctx,
		cancel:  cancel,
	}

	pc, err := c.build(c.gen.Add(1))
	if err != nil {
		cancel()
		return nil, err
	}
	c.pc = pc
	return c, nil
}

// build creates a PeerConnection whose callbacks are bound to gen.
func (c *PeerConn) build(gen uint64) (*webrtc.PeerConnection, error) {
	pc, err := newPeerConnection(c.factory.API, c.factory.ICEServers)
	if err != nil {
		return nil, err
	}

	if track := c.factory.AudioTrack; track != nil {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add audio track: %w", err)
		}
	}

	pc.OnNegotiationNeeded(func() {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventNegotiationNeeded})
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventLocalCandidate, Candidate: fromWebRTCCandidate(cand)})
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventICEState, ICE: iceState(state)})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventConnectionState, Connection: connectionState(state)})
	})

	pc.OnSignalingStateChange(func(state webrtc.SignalingState) {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventSignalingState, Signaling: signalingState(state)})
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != stateChannelLabel {
			c.log.Warn("Ignoring unexpected data channel %q", dc.Label())
			return
		}
		c.attach(gen, dc)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if !c.live(gen) {
			return
		}
		c.log.Debug("Remote %s track %s", track.Kind(), track.ID())
		if c.factory.OnTrack != nil {
			c.factory.OnTrack(c.peer, track)
		}
	})

	return pc, nil
}

func (c *PeerConn) live(gen uint64) bool {
	return !c.closed.Load() && c.gen.Load() == gen
}

func (c *PeerConn) emit(gen uint64, ev mesh.ConnEvent) {
	if c.live(gen) {
		c.events(ev)
	}
}

// attach wires the state channel's callbacks and starts its writer.
func (c *PeerConn) attach(gen uint64, dc *webrtc.DataChannel) {
	openSignal := make(chan struct{})
	var openOnce sync.Once

	dc.OnOpen(func() {
		openOnce.Do(func() { close(openSignal) })
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventChannelOpen})
	})
	dc.OnClose(func() {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventChannelClose})
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.emit(gen, mesh.ConnEvent{Kind: mesh.EventChannelMessage, Data: msg.Data})
	})

	s := newSender(c.ctx, dc, openSignal, c.log)

	c.mu.Lock()
	if c.gen.Load() == gen {
		c.sender = s
	}
	c.mu.Unlock()
}

func (c *PeerConn) current() *webrtc.PeerConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an offer, as an ICE restart if RestartICE was called
// since the last successful one.
func (c *PeerConn) CreateOffer() (protocol.SessionDescription, error) {
	var opts *webrtc.OfferOptions
	restart := c.restart.Load()
	if restart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := c.current().CreateOffer(opts)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	if restart {
		c.restart.Store(false)
	}
	return fromWebRTCDescription(offer), nil
}

func (c *PeerConn) CreateAnswer() (protocol.SessionDescription, error) {
	answer, err := c.current().CreateAnswer(nil)
	if err != nil {
		return protocol.SessionDescription{}, err
	}
	return fromWebRTCDescription(answer), nil
}

func (c *PeerConn) SetLocalDescription(desc protocol.SessionDescription) error {
	return c.current().SetLocalDescription(toWebRTCDescription(desc))
}

func (c *PeerConn) SetRemoteDescription(desc protocol.SessionDescription) error {
	return c.current().SetRemoteDescription(toWebRTCDescription(desc))
}

func (c *PeerConn) HasRemoteDescription() bool {
	return c.current().RemoteDescription() != nil
}

func (c *PeerConn) SignalingState() mesh.SignalingState {
	if c.closed.Load() {
		return mesh.SignalingClosed
	}
	return signalingState(c.current().SignalingState())
}

func (c *PeerConn) AddICECandidate(cand protocol.CandidateDescriptor) error {
	return c.current().AddICECandidate(toWebRTCCandidate(cand))
}

// Rollback discards a local offer. pion cannot roll back have-local-offer,
// so the PeerConnection is replaced by a fresh one. That is only possible
// before the first remote description: afterwards the PeerConnection carries
// the DTLS session and the accepted data channel, and Rollback leaves it
// untouched and returns mesh.ErrSessionLost.
func (c *PeerConn) Rollback() error {
	if c.closed.Load() {
		return webrtc.ErrConnectionClosed
	}
	if state := c.SignalingState(); state != mesh.SignalingHaveLocalOffer {
		return fmt.Errorf("rollback in %s", state)
	}
	if c.HasRemoteDescription() {
		return mesh.ErrSessionLost
	}

	gen := c.gen.Add(1)
	fresh, err := c.build(gen)
	if err != nil {
		return fmt.Errorf("rebuild peer connection: %w", err)
	}

	c.mu.Lock()
	old := c.pc
	c.pc = fresh
	c.sender = nil
	c.mu.Unlock()

	c.log.Debug("Rolled back local offer (generation %d)", gen)
	return old.Close()
}

// RestartICE marks the next offer as an ICE restart.
func (c *PeerConn) RestartICE() error {
	if c.closed.Load() {
		return webrtc.ErrConnectionClosed
	}
	c.restart.Store(true)
	return nil
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

func (c *PeerConn) CreateDataChannel() error {
	dc, err := newStateChannel(c.current())
	if err != nil {
		return err
	}
	c.attach(c.gen.Load(), dc)
	return nil
}

// SendState queues data on the state channel. Only the newest unsent state
// is kept.
func (c *PeerConn) SendState(data []byte) error {
	c.mu.Lock()
	s := c.sender
	c.mu.Unlock()
	if s == nil || c.closed.Load() {
		return mesh.ErrNoChannel
	}
	s.offer(data)
	return nil
}

// Close shuts down the PeerConnection. Callbacks fired by the close are
// dropped. Safe to call multiple times.
func (c *PeerConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	err := c.current().Close()
	if errors.Is(err, webrtc.ErrConnectionClosed) {
		return nil
	}
	return err
}
