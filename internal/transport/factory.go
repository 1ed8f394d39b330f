// Package transport implements mesh connections on top of pion/webrtc.
package transport

import (
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/pion/webrtc/v4"
)

// Factory creates a PeerConn per remote peer. All fields are optional.
type Factory struct {
	// ICEServers lists STUN/TURN URLs.
	ICEServers []string

	// API carries custom media and setting engines. Nil uses pion's defaults.
	API *webrtc.API

	// AudioTrack, if set, is added to every PeerConnection. A single local
	// track may be shared by all peers.
	AudioTrack webrtc.TrackLocal

	// OnTrack is called for every remote track. It must not block.
	OnTrack func(peer identity.PeerID, track *webrtc.TrackRemote)
}

// NewConnection implements mesh.ConnectionFactory.
func (f *Factory) NewConnection(peer identity.PeerID, role identity.Role, events mesh.EventSink) (mesh.Connection, error) {
	c, err := newPeerConn(f, peer, events)
	if err != nil {
		return nil, err
	}
	c.log.Debug("PeerConnection created as %s", role)
	return c, nil
}
