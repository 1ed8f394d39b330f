package mesh

import (
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

// announce broadcasts the local id. Skipped while the relay is not open.
func (n *Node) announce() {
	if !n.relay.Open() {
		util.LogDebug("Relay not open, skipping announce")
		return
	}
	n.send(protocol.NewAnnounce(n.id))
}

// maxStalledAnnounces is how many announces from a peer may arrive while an
// ICE restart towards it is unanswered before the entry is replaced.
const maxStalledAnnounces = 2

// handleAnnounce reacts to a presence message. Only the side with the
// greater id initiates, and only once per peer unless its ICE restart stalls.
func (n *Node) handleAnnounce(from identity.PeerID) {
	if identity.RoleOf(n.id, from) != identity.RoleInitiator {
		return
	}
	if p := n.registry.Get(from); p != nil {
		if !p.restartPending {
			p.stalledAnnounces = 0
			return
		}
		p.stalledAnnounces++
		if p.stalledAnnounces < maxStalledAnnounces {
			return
		}
		n.teardown(from, "ice restart unanswered")
	}

	p, err := n.createPeer(from)
	if err != nil {
		util.LogError("Failed to create connection for %s: %v", from, err)
		return
	}
	n.startOffer(p)
}
