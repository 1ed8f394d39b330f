package transport

import (
	"github.com/pion/webrtc/v4"
)

// stateChannelLabel names the single data channel each pair shares.
const stateChannelLabel = "channel"

// newPeerConnection creates a PeerConnection using the given STUN/TURN URLs.
// With no URLs only host candidates are gathered. A nil api uses pion's
// defaults.
func newPeerConnection(api *webrtc.API, urls []string) (*webrtc.PeerConnection, error) {
	var config webrtc.Configuration
	if len(urls) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: urls}}
	}
	if api == nil {
		return webrtc.NewPeerConnection(config)
	}
	return api.NewPeerConnection(config)
}

// newStateChannel creates the unordered state channel on pc. The remote side
// receives it through OnDataChannel.
func newStateChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := false
	return pc.CreateDataChannel(stateChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
}
