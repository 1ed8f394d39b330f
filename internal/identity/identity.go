// Package identity generates the per-process peer identifier and derives the
// role each side plays for a pair of peers. Roles need no message exchange:
// both ends compute the same answer from the two identifiers alone.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// PeerID identifies one process in the mesh. Identifiers are compared
// lexicographically; that ordering is the only source of role assignment.
type PeerID string

// New returns a random (version 4) identifier for this process.
func New() PeerID {
	return PeerID(uuid.NewString())
}

// Parse validates a textual identifier received from the wire.
// Any non-empty string is accepted so that foreign clients using other id
// schemes still interoperate; Parse only rejects empty ids.
func Parse(s string) (PeerID, error) {
	if s == "" {
		return "", fmt.Errorf("empty peer id")
	}
	return PeerID(s), nil
}

// IsUUID reports whether id is a well-formed UUID, as produced by New.
func (id PeerID) IsUUID() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// Less reports whether id sorts before other.
func (id PeerID) Less(other PeerID) bool { return id < other }

func (id PeerID) String() string { return string(id) }

// Role is the part a peer plays in one pair.
type Role uint8

const (
	// RoleResponder is the smaller id: it accepts the data channel and is polite.
	RoleResponder Role = iota
	// RoleInitiator is the larger id: it creates the data channel and is impolite.
	RoleInitiator
)

// RoleOf returns the role of local in the pair (local, remote).
func RoleOf(local, remote PeerID) Role {
	if remote.Less(local) {
		return RoleInitiator
	}
	return RoleResponder
}

// Polite reports whether this role yields when offers collide.
func (r Role) Polite() bool { return r == RoleResponder }

// CreatesChannel reports whether this role opens the data channel.
func (r Role) CreatesChannel() bool { return r == RoleInitiator }

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}
