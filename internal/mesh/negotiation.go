package mesh

import (
	"errors"

	"github.com/1ureka/meshp2p/internal/protocol"
)

// startOffer generates a local offer for p off the loop. makingOffer stays
// set until the result is applied by finishOffer or orphaned by a yield.
func (n *Node) startOffer(p *Peer) {
	if p.makingOffer {
		p.log.Debug("Offer already in flight")
		return
	}
	p.makingOffer = true
	p.offerSeq++

	seq, conn := p.offerSeq, p.conn
	go func() {
		desc, err := conn.CreateOffer()
		n.queue.push(offerResult{peer: p, seq: seq, desc: desc, err: err})
	}()
}

// finishOffer installs and sends a generated offer.
func (n *Node) finishOffer(r offerResult) {
	p := r.peer
	if !n.current(p) || r.seq != p.offerSeq || !p.makingOffer {
		p.log.Debug("Discarding superseded offer")
		return
	}
	defer func() { p.makingOffer = false }()

	if r.err != nil {
		n.reportError(p, "create offer", r.err)
		return
	}
	if err := p.conn.SetLocalDescription(r.desc); err != nil {
		n.reportError(p, "set local offer", err)
		return
	}
	p.negotiated = true
	n.send(protocol.NewDescription(n.id, p.ID, r.desc))
}

// onNegotiationNeeded starts a new offer unless one is pending or the
// connection is mid-exchange. In the latter case the connection raises the
// signal again once it is stable.
func (n *Node) onNegotiationNeeded(p *Peer) {
	if p.makingOffer {
		p.log.Debug("Negotiation needed while offer pending, skipping")
		return
	}
	if state := p.conn.SignalingState(); state != SignalingStable {
		p.log.Debug("Negotiation needed in %s, skipping", state)
		return
	}
	n.startOffer(p)
}

// handleDescription applies a remote description using perfect negotiation.
// On collision the impolite side ignores the remote offer and the polite
// side abandons its own.
func (n *Node) handleDescription(p *Peer, desc protocol.SessionDescription) {
	if desc.Type == protocol.SDPRollback {
		if err := p.conn.SetRemoteDescription(desc); err != nil {
			n.reportError(p, "set remote rollback", err)
		}
		return
	}

	isOffer := desc.Type == protocol.SDPOffer
	collision := isOffer && (p.makingOffer || p.conn.SignalingState() != SignalingStable)

	p.ignoreOffer = !p.Role.Polite() && collision
	if p.ignoreOffer {
		p.log.Debug("Ignoring colliding offer")
		return
	}

	if collision {
		p.log.Debug("Offer collision, yielding")
		if !n.yield(p) {
			return
		}
	}

	if err := p.conn.SetRemoteDescription(desc); err != nil {
		n.reportError(p, "set remote "+string(desc.Type), err)
		return
	}
	p.negotiated = true
	if id := desc.SessionID(); id != "" {
		p.remoteSession = id
	}
	if desc.Type == protocol.SDPAnswer {
		p.restartPending = false
	}
	n.flushCandidates(p)

	if !isOffer {
		return
	}

	answer, err := p.conn.CreateAnswer()
	if err != nil {
		n.reportError(p, "create answer", err)
		return
	}
	if err := p.conn.SetLocalDescription(answer); err != nil {
		n.reportError(p, "set local answer", err)
		return
	}
	n.send(protocol.NewDescription(n.id, p.ID, answer))
}

// yield abandons the local offer: a pending generation is orphaned and an
// installed offer is rolled back. It reports whether the remote offer can
// still be applied; a rollback that would lose the session tears p down.
func (n *Node) yield(p *Peer) bool {
	if p.makingOffer {
		p.offerSeq++
		p.makingOffer = false
	}
	if p.conn.SignalingState() != SignalingHaveLocalOffer {
		return true
	}
	err := p.conn.Rollback()
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSessionLost):
		n.teardown(p.ID, "rollback of established session")
	default:
		n.reportError(p, "rollback", err)
	}
	return false
}
