// Package app wires configuration, the relay connection, the mesh node and
// the WebRTC transport into a running client.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/meshp2p/internal/config"
	"github.com/1ureka/meshp2p/internal/identity"
	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/1ureka/meshp2p/internal/protocol"
	"github.com/1ureka/meshp2p/internal/relay"
	"github.com/1ureka/meshp2p/internal/transport"
	"github.com/1ureka/meshp2p/internal/util"
)

// Run connects to the relay at cfg.RelayURL and runs a mesh client until ctx
// is cancelled or the relay goes away.
func Run(ctx context.Context, cfg *config.Config) error {
	conn, err := relay.Dial(ctx, cfg.RelayURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	util.LogSuccess("Connected to relay %s", cfg.RelayURL)

	client, err := NewClient(cfg, conn, nil)
	if err != nil {
		return err
	}
	return client.Run(ctx)
}

// Client is one participant of the mesh together with its local player and
// the latest state of every remote player.
type Client struct {
	cfg    *config.Config
	node   *mesh.Node
	peers  *peerBook
	player *localPlayer
	audio  *webrtc.TrackLocalStaticSample
}

// NewClient builds a client on top of an already connected relay. A nil api
// uses pion's defaults.
func NewClient(cfg *config.Config, r mesh.Relay, api *webrtc.API) (*Client, error) {
	c := &Client{
		cfg:   cfg,
		peers: newPeerBook(),
	}

	factory := &transport.Factory{
		ICEServers: cfg.STUNServers,
		API:        api,
		OnTrack:    c.peers.trackAdded,
	}
	if cfg.Audio {
		track, err := newAudioTrack()
		if err != nil {
			return nil, fmt.Errorf("create audio track: %w", err)
		}
		c.audio = track
		factory.AudioTrack = track
	}

	id := identity.New()
	c.player = newLocalPlayer(fmt.Sprintf("hi from %08x", util.PeerTag(id.String())))

	c.node = mesh.New(mesh.Options{
		ID:               id,
		Relay:            r,
		Factory:          factory,
		Observer:         c.peers,
		AnnounceInterval: cfg.AnnounceInterval,
		AnnounceDelay:    cfg.AnnounceDelay,
		StateInterval:    cfg.StateInterval,
		State:            c.player.State,
	})
	return c, nil
}

// ID returns the local peer id.
func (c *Client) ID() identity.PeerID { return c.node.ID() }

// Node exposes the underlying mesh node.
func (c *Client) Node() *mesh.Node { return c.node }

// RemoteState returns the last PlayerState received from id.
func (c *Client) RemoteState(id identity.PeerID) (protocol.PlayerState, bool) {
	return c.peers.state(id)
}

// Run starts the background reporters and blocks in the mesh node loop.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	util.LogInfo("Local peer id %s", c.node.ID())

	var wg sync.WaitGroup
	defer wg.Wait()

	if c.audio != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			writeSilence(ctx, c.audio)
		}()
	}

	util.StartStatsReporter(ctx)

	if util.DebugEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.reportStatus(ctx)
		}()
	}

	err := c.node.Run(ctx)
	cancel()
	return err
}
