package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/1ureka/meshp2p/internal/util"
)

// reportStatus logs a table of every peer's connection state at debug level
// every StatusInterval until ctx is cancelled.
func (c *Client) reportStatus(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			peers, err := c.node.Peers(ctx)
			if err != nil {
				return
			}
			if len(peers) == 0 {
				util.LogDebug("No peers connected")
				continue
			}
			table, err := renderStatus(peers)
			if err != nil {
				util.LogDebug("status table: %v", err)
				continue
			}
			util.LogDebug("Peer status\n%s", table)
		case <-ctx.Done():
			return
		}
	}
}

// renderStatus formats peer snapshots as a table.
func renderStatus(peers []mesh.PeerSnapshot) (string, error) {
	data := pterm.TableData{
		{"Peer", "Role", "Negotiation", "Signaling", "ICE", "Connection", "Channel"},
	}
	for _, p := range peers {
		channel := "closed"
		if p.ChannelOpen {
			channel = "open"
		}
		data = append(data, []string{
			fmt.Sprintf("%08x", util.PeerTag(p.ID.String())),
			p.Role.String(),
			p.Negotiation.String(),
			p.Signaling.String(),
			p.ICE.String(),
			p.Connection.String(),
			channel,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
