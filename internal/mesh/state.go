package mesh

// SignalingState mirrors the offer/answer position of a connection.
type SignalingState uint8

const (
	SignalingStable SignalingState = iota
	SignalingHaveLocalOffer
	SignalingHaveRemoteOffer
	SignalingHaveLocalPranswer
	SignalingHaveRemotePranswer
	SignalingClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStable:
		return "stable"
	case SignalingHaveLocalOffer:
		return "have-local-offer"
	case SignalingHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingHaveRemotePranswer:
		return "have-remote-pranswer"
	case SignalingClosed:
		return "closed"
	}
	return "unknown"
}

// ICEState mirrors the connectivity checks of a connection.
type ICEState uint8

const (
	ICENew ICEState = iota
	ICEChecking
	ICEConnected
	ICECompleted
	ICEDisconnected
	ICEFailed
	ICEClosed
)

func (s ICEState) String() string {
	switch s {
	case ICENew:
		return "new"
	case ICEChecking:
		return "checking"
	case ICEConnected:
		return "connected"
	case ICECompleted:
		return "completed"
	case ICEDisconnected:
		return "disconnected"
	case ICEFailed:
		return "failed"
	case ICEClosed:
		return "closed"
	}
	return "unknown"
}

// ConnectionState mirrors the aggregate transport state of a connection.
type ConnectionState uint8

const (
	ConnectionNew ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionDisconnected
	ConnectionFailed
	ConnectionClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionNew:
		return "new"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionFailed:
		return "failed"
	case ConnectionClosed:
		return "closed"
	}
	return "unknown"
}

// NegotiationState is the engine's view of one peer: Idle until the first
// description is installed, then Stable or one of the transient offer
// states, and finally Closed.
type NegotiationState uint8

const (
	NegotiationIdle NegotiationState = iota
	NegotiationStable
	NegotiationHaveLocalOffer
	NegotiationHaveRemoteOffer
	NegotiationClosed
)

func (s NegotiationState) String() string {
	switch s {
	case NegotiationIdle:
		return "idle"
	case NegotiationStable:
		return "stable"
	case NegotiationHaveLocalOffer:
		return "have-local-offer"
	case NegotiationHaveRemoteOffer:
		return "have-remote-offer"
	case NegotiationClosed:
		return "closed"
	}
	return "unknown"
}

func negotiationState(negotiated bool, s SignalingState) NegotiationState {
	switch {
	case s == SignalingClosed:
		return NegotiationClosed
	case !negotiated:
		return NegotiationIdle
	case s == SignalingStable:
		return NegotiationStable
	case s == SignalingHaveLocalOffer || s == SignalingHaveLocalPranswer:
		return NegotiationHaveLocalOffer
	default:
		return NegotiationHaveRemoteOffer
	}
}
