package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/config"
	"github.com/progrium/kubix-go/handler"
	"github.com/progrium/kubix-go/metrics"
	"github.com/progrium/kubix-go/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// server runs a responding bus for every transport a listener accepts.
type server struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	handler handler.Handler

	mu    sync.Mutex
	buses map[string]*bus.Bus
}

func newServer(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, h handler.Handler) *server {
	return &server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		handler: h,
		buses:   make(map[string]*bus.Bus),
	}
}

// Serve accepts transports from l until ctx is done or l fails.
func (s *server) Serve(ctx context.Context, l transport.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	s.log.Info("listening", zap.Stringer("addr", l.Addr()))
	for {
		t, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		opts := append(s.cfg.BusOptions(s.log, s.metrics), bus.WithHandler(s.handler))
		b := bus.New(t, bus.Responder, opts...)
		if err := b.Start(ctx); err != nil {
			s.log.Warn("bus start failed", zap.Error(err))
			b.Close()
			continue
		}
		s.track(b)
	}
}

func (s *server) track(b *bus.Bus) {
	s.mu.Lock()
	s.buses[b.ID()] = b
	s.mu.Unlock()
	go func() {
		err := b.Wait()
		b.Close()
		s.mu.Lock()
		delete(s.buses, b.ID())
		s.mu.Unlock()
		s.log.Info("bus stopped", zap.String("bus", b.ID()), zap.Error(err))
	}()
}

// busInfo is the diagnostics view of one bus.
type busInfo struct {
	ID          string         `json:"id"`
	Operational bool           `json:"operational"`
	Peer        bool           `json:"peer"`
	Workers     bus.PoolStats  `json:"workers"`
	Channels    []bus.NodeInfo `json:"channels"`
}

func (s *server) snapshot() []busInfo {
	s.mu.Lock()
	buses := make([]*bus.Bus, 0, len(s.buses))
	for _, b := range s.buses {
		buses = append(buses, b)
	}
	s.mu.Unlock()

	infos := make([]busInfo, 0, len(buses))
	for _, b := range buses {
		infos = append(infos, busInfo{
			ID:          b.ID(),
			Operational: b.Operational(),
			Peer:        b.PeerAccepted(),
			Workers:     b.Workers(),
			Channels:    b.Channels(),
		})
	}
	return infos
}

func (s *server) routes(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := (codec.JSONCodec{Indent: "  "}).Encoder(w).Encode(s.snapshot()); err != nil {
			s.log.Warn("channels dump failed", zap.Error(err))
		}
	})
	return mux
}

// ServeHTTP exposes metrics and the channel dump on addr until ctx is done.
func (s *server) ServeHTTP(ctx context.Context, addr string, reg *prometheus.Registry) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), s.cfg.Bus.StopTimeout)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	s.log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Close stops every running bus.
func (s *server) Close() {
	s.mu.Lock()
	buses := make([]*bus.Bus, 0, len(s.buses))
	for _, b := range s.buses {
		buses = append(buses, b)
	}
	s.mu.Unlock()
	for _, b := range buses {
		b.Close()
	}
}
