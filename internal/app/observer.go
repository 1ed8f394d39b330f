package app

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/util"
)

// peerBook is the client's mesh.Observer. It keeps the latest state of each
// remote player and drains remote audio tracks.
type peerBook struct {
	mu     sync.Mutex
	states map[identity.PeerID]protocol.PlayerState
}

func newPeerBook() *peerBook {
	return &peerBook{states: make(map[identity.PeerID]protocol.PlayerState)}
}

func (b *peerBook) PeerAdded(id identity.PeerID, role identity.Role) {
	util.LogInfo("Peer %s joined (%s)", id, role)
}

// PeerRemoved drops everything held for id.
func (b *peerBook) PeerRemoved(id identity.PeerID) {
	b.mu.Lock()
	delete(b.states, id)
	b.mu.Unlock()
	util.LogInfo("Peer %s left", id)
}

func (b *peerBook) StateReceived(id identity.PeerID, state protocol.PlayerState) {
	b.mu.Lock()
	b.states[id] = state
	b.mu.Unlock()
}

func (b *peerBook) NegotiationError(id identity.PeerID, op string, err error) {
	util.PeerLog(id).Debug("negotiation error in %s: %v", op, err)
}

func (b *peerBook) state(id identity.PeerID) (protocol.PlayerState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[id]
	return s, ok
}

// trackAdded consumes a remote track until its connection closes. Playback
// is left to an external player; here the packets are only counted.
func (b *peerBook) trackAdded(id identity.PeerID, track *webrtc.TrackRemote) {
	log := util.PeerLog(id)
	log.Info("Receiving %s track (%s)", track.Kind(), track.Codec().MimeType)

	go func() {
		buf := make([]byte, 1500)
		var packets int
		for {
			if _, _, err := track.Read(buf); err != nil {
				if !errors.Is(err, io.EOF) {
					log.Debug("track read: %v", err)
				}
				log.Debug("%s track ended after %d packets", track.Kind(), packets)
				return
			}
			packets++
		}
	}()
}
