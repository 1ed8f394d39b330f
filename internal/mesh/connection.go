package mesh

import (
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
)

// Connection is the underlying per-peer connection object. The mesh never
// calls it concurrently for the same peer except for CreateOffer, which runs
// off the loop and must therefore be safe alongside the other methods.
type Connection interface {
	CreateOffer() (protocol.SessionDescription, error)
	CreateAnswer() (protocol.SessionDescription, error)
	SetLocalDescription(desc protocol.SessionDescription) error
	SetRemoteDescription(desc protocol.SessionDescription) error
	HasRemoteDescription() bool
	SignalingState() SignalingState

	// Rollback discards a locally installed offer, returning to Stable. It
	// returns ErrSessionLost if that is impossible without also discarding
	// the established session.
	Rollback() error

	// AddICECandidate applies a remote candidate.
	AddICECandidate(c protocol.CandidateDescriptor) error

	// RestartICE marks the next offer as an ICE restart.
	RestartICE() error

	// CreateDataChannel opens the state channel; only initiators call it.
	CreateDataChannel() error

	// SendState writes one PlayerState message to the open data channel.
	SendState(data []byte) error

	Close() error
}

// ConnectionFactory creates the connection for a newly registered peer.
// Every connection-level signal must be delivered through events.
type ConnectionFactory interface {
	NewConnection(peer identity.PeerID, role identity.Role, events EventSink) (Connection, error)
}

// EventSink receives connection-level signals. It never blocks and may be
// called from any goroutine.
type EventSink func(ConnEvent)

// EventKind identifies a connection-level signal.
type EventKind uint8

const (
	EventNegotiationNeeded EventKind = iota
	EventLocalCandidate
	EventICEState
	EventConnectionState
	EventSignalingState
	EventChannelOpen
	EventChannelClose
	EventChannelMessage
)

func (k EventKind) String() string {
	switch k {
	case EventNegotiationNeeded:
		return "negotiation-needed"
	case EventLocalCandidate:
		return "local-candidate"
	case EventICEState:
		return "ice-state"
	case EventConnectionState:
		return "connection-state"
	case EventSignalingState:
		return "signaling-state"
	case EventChannelOpen:
		return "channel-open"
	case EventChannelClose:
		return "channel-close"
	case EventChannelMessage:
		return "channel-message"
	}
	return "unknown"
}

// ConnEvent is one connection-level signal. Only the field matching Kind is set.
type ConnEvent struct {
	Kind       EventKind
	Candidate  protocol.CandidateDescriptor
	ICE        ICEState
	Connection ConnectionState
	Signaling  SignalingState
	Data       []byte
}

// Relay is the duplex channel to the broadcast relay.
type Relay interface {
	Send(env *protocol.Envelope) error
	Messages() <-chan []byte
	Done() <-chan struct{}
	Open() bool
}

// Observer receives peer-level notifications. Calls are made from the node
// loop and must not block.
type Observer interface {
	PeerAdded(id identity.PeerID, role identity.Role)

	// PeerRemoved is the point to release resources paired with the peer.
	PeerRemoved(id identity.PeerID)

	StateReceived(id identity.PeerID, state protocol.PlayerState)

	// NegotiationError reports an unexpected per-peer failure. op names the
	// step that failed, e.g. "create offer" or "add candidate".
	NegotiationError(id identity.PeerID, op string, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) PeerAdded(identity.PeerID, identity.Role)            {}
func (NopObserver) PeerRemoved(identity.PeerID)                         {}
func (NopObserver) StateReceived(identity.PeerID, protocol.PlayerState) {}
func (NopObserver) NegotiationError(identity.PeerID, string, error)     {}
