package mesh

import (
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

// handleConnEvent applies a connection-level signal. Signals from a
// connection that is no longer registered are dropped.
func (n *Node) handleConnEvent(p *Peer, ev ConnEvent) {
	if !n.current(p) {
		p.log.Debug("Dropping %s from stale connection", ev.Kind)
		return
	}

	switch ev.Kind {
	case EventNegotiationNeeded:
		n.onNegotiationNeeded(p)

	case EventLocalCandidate:
		n.sendCandidate(p, ev.Candidate)

	case EventICEState:
		p.ice = ev.ICE
		p.log.Debug("ICE %s", ev.ICE)
		switch ev.ICE {
		case ICEConnected, ICECompleted:
			p.restartPending = false
		case ICEFailed:
			n.restartICE(p)
		case ICEDisconnected, ICEClosed:
			n.teardown(p.ID, "ice "+ev.ICE.String())
		}

	case EventConnectionState:
		p.connection = ev.Connection
		p.log.Debug("Connection %s", ev.Connection)
		switch ev.Connection {
		case ConnectionFailed:
			p.log.Warn("Connection failed, waiting for ICE")
		case ConnectionClosed:
			n.teardown(p.ID, "connection closed")
		}

	case EventSignalingState:
		p.signaling = ev.Signaling
		if ev.Signaling == SignalingClosed {
			n.teardown(p.ID, "signaling closed")
		}

	case EventChannelOpen:
		p.channelOpen = true
		p.log.Info("Data channel open")

	case EventChannelClose:
		wasOpen := p.channelOpen
		p.channelOpen = false
		if wasOpen {
			n.teardown(p.ID, "data channel closed")
		}

	case EventChannelMessage:
		n.receiveState(p, ev.Data)
	}
}

// restartICE asks the connection for an ICE restart and renegotiates. Only
// the initiator restarts; the responder waits for its restart offer so the
// two sides never send colliding restart offers.
func (n *Node) restartICE(p *Peer) {
	if p.Role.Polite() {
		p.log.Warn("ICE failed, waiting for restart offer")
		return
	}
	p.log.Warn("ICE failed, restarting")
	if err := p.conn.RestartICE(); err != nil {
		n.reportError(p, "restart ice", err)
		return
	}
	p.restartPending = true
	p.stalledAnnounces = 0
	n.onNegotiationNeeded(p)
}

// teardown removes id from the registry, then closes its connection and
// clears its flags. Calling it for an id with no entry does nothing.
func (n *Node) teardown(id identity.PeerID, reason string) {
	p := n.registry.remove(id)
	if p == nil {
		return
	}

	if p.makingOffer {
		p.offerSeq++
	}
	p.makingOffer = false
	p.ignoreOffer = false
	p.restartPending = false
	p.channelOpen = false
	p.pendingCandidates = nil

	if err := p.conn.Close(); err != nil {
		p.log.Debug("Close: %v", err)
	}

	util.Stats.RemovePeer()
	n.observer.PeerRemoved(id)
	p.log.Info("Peer %s removed (%s)", id, reason)
}

func (n *Node) teardownAll(reason string) {
	for _, id := range n.registry.IDs() {
		n.teardown(id, reason)
	}
}

// broadcastState sends the local PlayerState to every peer with an open
// data channel.
func (n *Node) broadcastState() {
	if n.registry.Len() == 0 {
		return
	}
	data, err := protocol.EncodeState(n.state())
	if err != nil {
		util.LogError("Failed to encode state: %v", err)
		return
	}

	n.registry.each(func(p *Peer) {
		if !p.channelOpen {
			return
		}
		if err := p.conn.SendState(data); err != nil {
			p.log.Debug("State send: %v", err)
			return
		}
		util.Stats.AddStateSent(len(data))
	})
}

func (n *Node) receiveState(p *Peer, data []byte) {
	state, err := protocol.DecodeState(data)
	if err != nil {
		p.log.Warn("Dropping state message: %v", err)
		return
	}
	util.Stats.AddStateRecv(len(data))
	n.observer.StateReceived(p.ID, state)
}
