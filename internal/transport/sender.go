package transport

import (
	"context"

	"github.com/1ureka/meshp2p/internal/util"
	"github.com/pion/webrtc/v4"
)

const (
	highWaterMark = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark  = 64 * 1024  // resume sending when bufferedAmount drops below this
)

// sender is the single writer of one state channel. It holds at most one
// pending message: a newer state replaces an unsent older one.
type sender struct {
	latest      chan []byte
	drainSignal chan struct{}
}

// newSender wires the backpressure callbacks on dc and starts the writer.
// The writer exits when ctx is cancelled or a send fails.
func newSender(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}, log util.PeerLog) *sender {
	s := &sender{
		latest:      make(chan []byte, 1),
		drainSignal: make(chan struct{}, 1),
	}

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case s.drainSignal <- struct{}{}:
		default:
		}
	})

	go s.loop(ctx, dc, openSignal, log)

	return s
}

func (s *sender) loop(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}, log util.PeerLog) {
	select {
	case <-openSignal:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case data := <-s.latest:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				select {
				case <-s.drainSignal:
				case <-ctx.Done():
					return
				}
			}
			if err := dc.Send(data); err != nil {
				log.Warn("State send failed: %v", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// offer queues data, replacing any message still waiting.
func (s *sender) offer(data []byte) {
	for {
		select {
		case s.latest <- data:
			return
		default:
		}
		select {
		case <-s.latest:
		default:
		}
	}
}
