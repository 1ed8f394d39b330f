package transport

import (
	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/pion/webrtc/v4"
)

func toWebRTCDescription(d protocol.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(string(d.Type)), SDP: d.SDP}
}

func fromWebRTCDescription(d webrtc.SessionDescription) protocol.SessionDescription {
	return protocol.SessionDescription{Type: protocol.SDPType(d.Type.String()), SDP: d.SDP}
}

func toWebRTCCandidate(c protocol.CandidateDescriptor) webrtc.ICECandidateInit {
	index := uint16(c.MediaLineIndex)
	init := webrtc.ICECandidateInit{Candidate: c.Candidate, SDPMLineIndex: &index}
	if c.MediaID != "" {
		mid := c.MediaID
		init.SDPMid = &mid
	}
	return init
}

func fromWebRTCCandidate(c *webrtc.ICECandidate) protocol.CandidateDescriptor {
	init := c.ToJSON()
	out := protocol.CandidateDescriptor{Candidate: init.Candidate}
	if init.SDPMid != nil {
		out.MediaID = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		out.MediaLineIndex = int(*init.SDPMLineIndex)
	}
	return out
}

func signalingState(s webrtc.SignalingState) mesh.SignalingState {
	switch s {
	case webrtc.SignalingStateHaveLocalOffer:
		return mesh.SignalingHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return mesh.SignalingHaveRemoteOffer
	case webrtc.SignalingStateHaveLocalPranswer:
		return mesh.SignalingHaveLocalPranswer
	case webrtc.SignalingStateHaveRemotePranswer:
		return mesh.SignalingHaveRemotePranswer
	case webrtc.SignalingStateClosed:
		return mesh.SignalingClosed
	}
	return mesh.SignalingStable
}

func iceState(s webrtc.ICEConnectionState) mesh.ICEState {
	switch s {
	case webrtc.ICEConnectionStateChecking:
		return mesh.ICEChecking
	case webrtc.ICEConnectionStateConnected:
		return mesh.ICEConnected
	case webrtc.ICEConnectionStateCompleted:
		return mesh.ICECompleted
	case webrtc.ICEConnectionStateDisconnected:
		return mesh.ICEDisconnected
	case webrtc.ICEConnectionStateFailed:
		return mesh.ICEFailed
	case webrtc.ICEConnectionStateClosed:
		return mesh.ICEClosed
	}
	return mesh.ICENew
}

func connectionState(s webrtc.PeerConnectionState) mesh.ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return mesh.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return mesh.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return mesh.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return mesh.ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return mesh.ConnectionClosed
	}
	return mesh.ConnectionNew
}
