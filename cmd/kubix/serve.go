package main

import (
	"context"
	"errors"

	"github.com/progrium/kubix-go/cmd/kubix/cli"
	"github.com/progrium/kubix-go/interop"
	"github.com/progrium/kubix-go/metrics"
	"github.com/progrium/kubix-go/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cli.Command{
	Usage: "serve [url]",
	Short: "run responding buses with the reference service",
	Args:  cli.MaxArgs(1),
	Run: func(ctx context.Context, args []string) {
		cfg, logger := setup()
		defer logger.Sync()
		if len(args) == 1 {
			cfg.Transport.URL = args[0]
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc := &interop.Service{Codec: payloadCodec()}
		srv := newServer(cfg, logger, metrics.New(reg), svc.Handler())
		defer srv.Close()

		l, err := transport.Listen(cfg.Transport.URL)
		if err != nil {
			logger.Fatal("listen failed", zap.String("url", cfg.Transport.URL), zap.Error(err))
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(ctx, l)
		})
		if cfg.Metrics.Addr != "" {
			g.Go(func() error {
				return srv.ServeHTTP(ctx, cfg.Metrics.Addr, reg)
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("serve failed", zap.Error(err))
		}
		logger.Info("shutting down")
	},
}
