// relay: development broadcast relay.
//
// Accepts WebSocket clients on /ws and forwards every message to every other
// connected client. It never inspects what it forwards.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/1ureka/meshp2p/internal/config"
	"github.com/1ureka/meshp2p/internal/relay"
	"github.com/1ureka/meshp2p/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config.LoadDotEnv()
	cfg := config.LoadRelay()

	flags := pflag.NewFlagSet("relay", pflag.ExitOnError)
	flags.StringVarP(&cfg.Listen, "listen", "l", cfg.Listen, "listen address")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flags.Parse(os.Args[1:])

	if cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("meshp2p relay — v%s", version))
	pterm.Println()

	ready := make(chan net.Addr, 1)
	go func() {
		select {
		case addr := <-ready:
			util.LogSuccess("relay listening on ws://%s/ws", addr)
		case <-ctx.Done():
		}
	}()

	if err := relay.ListenAndServe(ctx, cfg.Listen, relay.NewHub(), ready); err != nil {
		util.LogError("relay failed: %v", err)
		os.Exit(1)
	}
	util.LogInfo("relay stopped")
}
