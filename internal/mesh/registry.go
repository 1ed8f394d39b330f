package mesh

import (
	"sort"

	"github.com/1ureka/meshp2p/internal/identity"
)

// Registry maps remote peer ids to their connection state. It holds at most
// one Peer per id. It is not safe for concurrent use: a Node owns it and only
// touches it from its loop.
type Registry struct {
	peers map[identity.PeerID]*Peer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[identity.PeerID]*Peer)}
}

// Get returns the peer for id, or nil.
func (r *Registry) Get(id identity.PeerID) *Peer {
	return r.peers[id]
}

// Has reports whether id has an entry.
func (r *Registry) Has(id identity.PeerID) bool {
	_, ok := r.peers[id]
	return ok
}

// add inserts p. It reports false, leaving the registry unchanged, if an
// entry for p.ID already exists.
func (r *Registry) add(p *Peer) bool {
	if _, ok := r.peers[p.ID]; ok {
		return false
	}
	r.peers[p.ID] = p
	return true
}

// remove deletes and returns the entry for id, or nil if there was none.
func (r *Registry) remove(id identity.PeerID) *Peer {
	p, ok := r.peers[id]
	if !ok {
		return nil
	}
	delete(r.peers, id)
	return p
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.peers) }

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []identity.PeerID {
	ids := make([]identity.PeerID, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// each calls fn for every peer in ascending id order. fn may remove the
// peer it is given.
func (r *Registry) each(fn func(*Peer)) {
	for _, id := range r.IDs() {
		if p := r.peers[id]; p != nil {
			fn(p)
		}
	}
}
