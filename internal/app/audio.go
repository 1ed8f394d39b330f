package app

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

const audioFrame = 20 * time.Millisecond

// opusSilence is a single Opus frame encoding 20ms of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// newAudioTrack creates the local Opus track shared by every peer connection.
func newAudioTrack() (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "meshp2p",
	)
}

// writeSilence keeps the shared track fed until ctx is cancelled. Audio
// capture is outside this program; a real source would replace it.
func writeSilence(ctx context.Context, track *webrtc.TrackLocalStaticSample) {
	ticker := time.NewTicker(audioFrame)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = track.WriteSample(media.Sample{Data: opusSilence, Duration: audioFrame})
		case <-ctx.Done():
			return
		}
	}
}
