package mesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/relay"
)

// runNode starts n.Run in the background and returns a channel with its
// result.
func runNode(ctx context.Context, n *Node) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- n.Run(ctx) }()
	return errc
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// stablePeer reports whether n has exactly one peer and it is stable.
func stablePeer(ctx context.Context, n *Node) (PeerSnapshot, bool) {
	peers, err := n.Peers(ctx)
	if err != nil || len(peers) != 1 {
		return PeerSnapshot{}, false
	}
	return peers[0], peers[0].Negotiation == NegotiationStable
}

// TestTwoNodesConverge runs two nodes against an in-process relay. Both
// announce, exactly one side initiates and both end stable with one entry
// each and each other's candidates applied.
func TestTwoNodesConverge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub := relay.NewMemoryHub()
	nodes := map[identity.PeerID]*Node{}
	factories := map[identity.PeerID]*fakeFactory{}
	var results []<-chan error

	for _, id := range []identity.PeerID{"a", "b"} {
		f := newFakeFactory()
		f.prepare = func(c *fakeConn) { c.trickle = true }
		conn := hub.Join()
		defer conn.Close()

		n := New(Options{
			ID:               id,
			Relay:            conn,
			Factory:          f,
			AnnounceDelay:    10 * time.Millisecond,
			AnnounceInterval: 50 * time.Millisecond,
		})
		nodes[id], factories[id] = n, f
		results = append(results, runNode(ctx, n))
	}

	var a, b PeerSnapshot
	waitFor(t, "both sides stable", func() bool {
		var okA, okB bool
		a, okA = stablePeer(ctx, nodes["a"])
		b, okB = stablePeer(ctx, nodes["b"])
		return okA && okB
	})

	if a.ID != "b" || a.Role != identity.RoleResponder {
		t.Errorf("a sees %s as %s, want b as responder", a.ID, a.Role)
	}
	if b.ID != "a" || b.Role != identity.RoleInitiator {
		t.Errorf("b sees %s as %s, want a as initiator", b.ID, b.Role)
	}

	waitFor(t, "candidates exchanged", func() bool {
		return len(factories["a"].last(t, "b").snapshot().candidates) > 0 &&
			len(factories["b"].last(t, "a").snapshot().candidates) > 0
	})

	// Repeated announces must not create further connections.
	time.Sleep(150 * time.Millisecond)
	if n := factories["b"].count("a"); n != 1 {
		t.Errorf("b created %d connections to a, want 1", n)
	}
	if n := factories["a"].count("b"); n != 1 {
		t.Errorf("a created %d connections to b, want 1", n)
	}

	cancel()
	for _, errc := range results {
		if err := <-errc; err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	}
}

func TestRunEndsWhenRelayCloses(t *testing.T) {
	h := newHarness("9")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := runNode(ctx, h.node)

	data, err := protocol.Encode(protocol.NewAnnounce("1"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	h.relay.messages <- data
	waitFor(t, "peer created", func() bool { return h.factory.count("1") == 1 })

	h.relay.close()
	if err := <-errc; !errors.Is(err, ErrRelayClosed) {
		t.Fatalf("Run returned %v, want ErrRelayClosed", err)
	}

	if got := h.factory.last(t, "1").snapshot().closed; got != 1 {
		t.Errorf("peer closed %d times on shutdown, want 1", got)
	}
	if _, err := h.node.Peers(ctx); !errors.Is(err, ErrNodeStopped) {
		t.Errorf("Peers after stop returned %v, want ErrNodeStopped", err)
	}
}

func TestDisconnect(t *testing.T) {
	h := newHarness("9")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := runNode(ctx, h.node)

	data, err := protocol.Encode(protocol.NewAnnounce("1"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	h.relay.messages <- data
	waitFor(t, "peer created", func() bool { return h.factory.count("1") == 1 })

	if err := h.node.Disconnect(ctx, "1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if err := h.node.Disconnect(ctx, "1"); err != nil {
		t.Fatalf("second Disconnect failed: %v", err)
	}

	peers, err := h.node.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers failed: %v", err)
	}
	if len(peers) != 0 {
		t.Errorf("Peers = %v, want none", peers)
	}
	if removed := h.observer.removedIDs(); len(removed) != 1 {
		t.Errorf("PeerRemoved called %d times, want 1", len(removed))
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
}

func TestNewAssignsRandomID(t *testing.T) {
	n := New(Options{Relay: newFakeRelay(), Factory: newFakeFactory()})
	if !n.ID().IsUUID() {
		t.Errorf("ID() = %q, want a UUID", n.ID())
	}
}
