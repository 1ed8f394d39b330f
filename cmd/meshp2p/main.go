// meshp2p: CLI entry point.
//
// Joins a full mesh of peers through a broadcast relay. Every pair of peers
// negotiates a direct WebRTC connection carrying an audio track and a state
// data channel; the relay only ever sees signaling messages.
//
// Settings come from the environment (or a .env file) and can be overridden
// with flags. Without a relay URL the client prompts for one.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/1ureka/meshp2p/internal/app"
	"github.com/1ureka/meshp2p/internal/config"
	"github.com/1ureka/meshp2p/internal/mesh"
	"github.com/1ureka/meshp2p/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dotenv := config.LoadDotEnv()
	cfg := config.Load()

	flags := pflag.NewFlagSet("meshp2p", pflag.ExitOnError)
	flags.StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "relay WebSocket URL (e.g. wss://relay.example.com/ws)")
	flags.DurationVar(&cfg.AnnounceInterval, "announce-interval", cfg.AnnounceInterval, "presence announce period")
	flags.DurationVar(&cfg.AnnounceDelay, "announce-delay", cfg.AnnounceDelay, "delay before the first announce")
	flags.DurationVar(&cfg.StateInterval, "state-interval", cfg.StateInterval, "player state send period")
	flags.DurationVar(&cfg.StatusInterval, "status-interval", cfg.StatusInterval, "peer status table period (debug only)")
	flags.StringSliceVar(&cfg.STUNServers, "stun", cfg.STUNServers, "STUN server URLs, comma-separated")
	flags.BoolVar(&cfg.Audio, "audio", cfg.Audio, "attach an audio track to every peer connection")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flags.Parse(os.Args[1:])

	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("meshp2p — v%s", version))
	pterm.Println()

	if dotenv {
		util.LogDebug("loaded settings from .env")
	}

	if cfg.RelayURL == "" {
		cfg.RelayURL = askURL()
	} else {
		wsURL, err := normalizeWSURL(cfg.RelayURL)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg.RelayURL = wsURL
	}

	err := app.Run(ctx, cfg)
	switch {
	case err == nil:
		util.LogInfo("left the mesh")
	case errors.Is(err, mesh.ErrRelayClosed):
		util.LogWarning("relay connection lost")
		os.Exit(1)
	default:
		util.LogError("mesh client failed: %v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates and normalizes a raw relay URL. A missing scheme
// defaults to wss and http(s) is mapped to ws(s); a missing path becomes /ws.
func normalizeWSURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path), nil
}

// askURL prompts the user for a valid relay URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Relay URL (e.g. wss://relay.example.com/ws)").
			Show()

		wsURL, err := normalizeWSURL(raw)
		if err == nil {
			pterm.Println()
			return wsURL
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}
