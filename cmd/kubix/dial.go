package main

import (
	"context"
	"time"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/config"
	"github.com/progrium/kubix-go/transport"
	"go.uber.org/zap"
)

// dialBus connects an initiating bus to the configured URL and waits for
// the peer to accept it.
func dialBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*bus.Bus, error) {
	t, err := transport.Dial(cfg.Transport.URL)
	if err != nil {
		return nil, err
	}
	b := bus.New(t, bus.Initiator, cfg.BusOptions(logger, nil)...)
	if err := b.Start(ctx); err != nil {
		b.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.AwaitPeer(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}
