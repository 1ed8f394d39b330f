package mesh

import (
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

// maxPendingCandidates bounds the early-candidate buffer per peer.
const maxPendingCandidates = 64

// Peer is the connection state for one remote peer. It is created together
// with its Connection and destroyed together with it; the role never changes.
type Peer struct {
	ID   identity.PeerID
	Role identity.Role

	conn Connection
	log  util.PeerLog

	// makingOffer is set while a local offer is being generated and sent.
	// It doubles as the peer's pending-operation slot.
	makingOffer bool
	// offerSeq identifies the in-flight offer; bumping it orphans the result.
	offerSeq uint64
	// ignoreOffer is set while a colliding remote offer is being ignored.
	ignoreOffer bool
	// negotiated is set once any description has been installed.
	negotiated bool
	// remoteSession is the session id of the last installed remote
	// description.
	remoteSession string
	// restartPending is set from an ICE restart until its answer arrives.
	restartPending   bool
	stalledAnnounces int

	pendingCandidates []protocol.CandidateDescriptor

	ice         ICEState
	connection  ConnectionState
	signaling   SignalingState
	channelOpen bool
}

func newPeer(local, remote identity.PeerID) *Peer {
	return &Peer{
		ID:   remote,
		Role: identity.RoleOf(local, remote),
		log:  util.PeerLog(remote),
	}
}

// replacedBy reports whether desc is an offer from a different session than
// the one installed, i.e. the remote side rebuilt its connection.
func (p *Peer) replacedBy(desc protocol.SessionDescription) bool {
	if desc.Type != protocol.SDPOffer || p.remoteSession == "" {
		return false
	}
	id := desc.SessionID()
	return id != "" && id != p.remoteSession
}

// PeerSnapshot is a read-only copy of a Peer's state.
type PeerSnapshot struct {
	ID                identity.PeerID
	Role              identity.Role
	Negotiation       NegotiationState
	Signaling         SignalingState
	ICE               ICEState
	Connection        ConnectionState
	MakingOffer       bool
	IgnoreOffer       bool
	ChannelOpen       bool
	PendingCandidates int
}

func (p *Peer) snapshot() PeerSnapshot {
	signaling := p.conn.SignalingState()
	return PeerSnapshot{
		ID:                p.ID,
		Role:              p.Role,
		Negotiation:       negotiationState(p.negotiated, signaling),
		Signaling:         signaling,
		ICE:               p.ice,
		Connection:        p.connection,
		MakingOffer:       p.makingOffer,
		IgnoreOffer:       p.ignoreOffer,
		ChannelOpen:       p.channelOpen,
		PendingCandidates: len(p.pendingCandidates),
	}
}
