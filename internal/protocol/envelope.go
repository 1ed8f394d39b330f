// Package protocol defines the envelopes exchanged through the broadcast relay
// and the PlayerState payload sent over the data channel.
package protocol

import (
	"strconv"

	"github.com/pion/sdp/v3"

	"github.com/1ureka/meshp2p/internal/identity"
)

// MessageType identifies the kind of relay envelope.
type MessageType string

const (
	TypeAnnounce    MessageType = "hi"                // presence, no "to"
	TypeDescription MessageType = "sdp"               // session description
	TypeCandidate   MessageType = "new-ice-candidate" // trickled network path
)

// SDPType is the kind of a session description.
type SDPType string

const (
	SDPOffer    SDPType = "offer"
	SDPAnswer   SDPType = "answer"
	SDPPranswer SDPType = "pranswer"
	SDPRollback SDPType = "rollback"
)

// Valid reports whether t is one of the known description kinds.
func (t SDPType) Valid() bool {
	switch t {
	case SDPOffer, SDPAnswer, SDPPranswer, SDPRollback:
		return true
	}
	return false
}

// SessionDescription is a negotiation blob, relayed verbatim.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// SessionID returns the session id from the description's origin line, or
// "" if the blob does not parse. It stays the same across renegotiations of
// one connection and changes when the remote side builds a new one.
func (d SessionDescription) SessionID() string {
	var parsed sdp.SessionDescription
	if err := parsed.UnmarshalString(d.SDP); err != nil || parsed.Origin.SessionID == 0 {
		return ""
	}
	return strconv.FormatUint(parsed.Origin.SessionID, 10)
}

// CandidateDescriptor is an opaque network path descriptor, relayed verbatim.
type CandidateDescriptor struct {
	Candidate      string `json:"candidate"`
	MediaID        string `json:"sdpMid"`
	MediaLineIndex int    `json:"sdpMLineIndex"`
}

// Envelope is the JSON structure every client sends to the relay.
type Envelope struct {
	Type      MessageType          `json:"type"`
	From      identity.PeerID      `json:"from"`
	To        identity.PeerID      `json:"to,omitempty"`
	SDP       *SessionDescription  `json:"sdp,omitempty"`
	Candidate *CandidateDescriptor `json:"candidate,omitempty"`
}

// NewAnnounce builds the presence envelope for from.
func NewAnnounce(from identity.PeerID) *Envelope {
	return &Envelope{Type: TypeAnnounce, From: from}
}

// NewDescription builds a description envelope addressed to to.
func NewDescription(from, to identity.PeerID, desc SessionDescription) *Envelope {
	return &Envelope{Type: TypeDescription, From: from, To: to, SDP: &desc}
}

// NewCandidate builds a candidate envelope addressed to to.
func NewCandidate(from, to identity.PeerID, c CandidateDescriptor) *Envelope {
	return &Envelope{Type: TypeCandidate, From: from, To: to, Candidate: &c}
}

// IsFor reports whether the receiver with id local should act on e.
// Announces are evaluated by everyone; everything else only by the peer
// named in "to".
func (e *Envelope) IsFor(local identity.PeerID) bool {
	if e.Type == TypeAnnounce {
		return e.To == "" || e.To == local
	}
	return e.To == local
}
