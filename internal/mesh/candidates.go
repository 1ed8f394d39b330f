package mesh

import (
	"github.com/1ureka/meshp2p/internal/protocol"
)

// handleCandidate applies a remote candidate. Failures are swallowed while
// the matching offer is being ignored. A candidate that fails before any
// remote description is reported and kept for flushCandidates.
func (n *Node) handleCandidate(p *Peer, c protocol.CandidateDescriptor) {
	err := p.conn.AddICECandidate(c)
	if err == nil {
		return
	}
	if p.ignoreOffer {
		p.log.Debug("Dropping candidate for ignored offer: %v", err)
		return
	}

	n.reportError(p, "add candidate", err)

	if p.conn.HasRemoteDescription() {
		return
	}
	if len(p.pendingCandidates) >= maxPendingCandidates {
		p.log.Warn("Candidate buffer full, dropping %q", c.Candidate)
		return
	}
	p.pendingCandidates = append(p.pendingCandidates, c)
}

// flushCandidates applies candidates that arrived before the remote
// description.
func (n *Node) flushCandidates(p *Peer) {
	if len(p.pendingCandidates) == 0 {
		return
	}
	pending := p.pendingCandidates
	p.pendingCandidates = nil

	p.log.Debug("Applying %d buffered candidates", len(pending))
	for _, c := range pending {
		if err := p.conn.AddICECandidate(c); err != nil {
			n.reportError(p, "add buffered candidate", err)
		}
	}
}

// sendCandidate forwards a locally gathered candidate to p.
func (n *Node) sendCandidate(p *Peer, c protocol.CandidateDescriptor) {
	n.send(protocol.NewCandidate(n.id, p.ID, c))
}
