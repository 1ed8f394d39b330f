package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide mesh counter.
var Stats = &stats{}

type stats struct {
	PeersAdded     atomic.Int64 // cumulative registry insertions
	PeersRemoved   atomic.Int64 // cumulative teardowns
	EnvelopesIn    atomic.Int64 // relay envelopes acted upon
	EnvelopesOut   atomic.Int64 // relay envelopes sent
	EnvelopesBad   atomic.Int64 // malformed envelopes dropped
	StateBytesSent atomic.Int64 // PlayerState bytes written to data channels
	StateBytesRecv atomic.Int64 // PlayerState bytes read from data channels
}

func (s *stats) AddPeer()           { s.PeersAdded.Add(1) }
func (s *stats) RemovePeer()        { s.PeersRemoved.Add(1) }
func (s *stats) AddEnvelopeIn()     { s.EnvelopesIn.Add(1) }
func (s *stats) AddEnvelopeOut()    { s.EnvelopesOut.Add(1) }
func (s *stats) AddEnvelopeBad()    { s.EnvelopesBad.Add(1) }
func (s *stats) AddStateSent(n int) { s.StateBytesSent.Add(int64(n)) }
func (s *stats) AddStateRecv(n int) { s.StateBytesRecv.Add(int64(n)) }
func (s *stats) ActivePeers() int64 { return s.PeersAdded.Load() - s.PeersRemoved.Load() }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs mesh statistics every
// 10 seconds. Quiet intervals are skipped. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prev snapshot
		for {
			select {
			case <-ticker.C:
				cur := takeSnapshot()
				if cur.changedFrom(prev) {
					pterm.DefaultLogger.Info(formatStats(cur, prev, reportInterval.Seconds()))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

type snapshot struct {
	added, removed, in, out, sent, recv int64
}

func takeSnapshot() snapshot {
	return snapshot{
		added:   Stats.PeersAdded.Load(),
		removed: Stats.PeersRemoved.Load(),
		in:      Stats.EnvelopesIn.Load(),
		out:     Stats.EnvelopesOut.Load(),
		sent:    Stats.StateBytesSent.Load(),
		recv:    Stats.StateBytesRecv.Load(),
	}
}

func (s snapshot) changedFrom(prev snapshot) bool {
	return s.added != prev.added || s.removed != prev.removed ||
		s.in != prev.in || s.out != prev.out ||
		s.sent-prev.sent > 10 || s.recv-prev.recv > 10
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a one-line summary of the interval between prev and cur.
func formatStats(cur, prev snapshot, seconds float64) string {
	return fmt.Sprintf("Peers: %2d (%2d↑ %2d↓) | Relay: %3d in %3d out | State: %s/s out %s/s in",
		cur.added-cur.removed,
		cur.added-prev.added,
		cur.removed-prev.removed,
		cur.in-prev.in,
		cur.out-prev.out,
		formatBytes(float64(cur.sent-prev.sent)/seconds),
		formatBytes(float64(cur.recv-prev.recv)/seconds),
	)
}
