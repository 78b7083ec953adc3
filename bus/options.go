package bus

import (
	"time"

	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/handler"
	"github.com/progrium/kubix-go/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultWaitTick    = time.Second
	DefaultFatalErrors = 10
	DefaultMaxChannels = 256
	DefaultStopTimeout = 5 * time.Second
)

// DefaultGreeting is sent on the control channel when none is configured.
var DefaultGreeting = []byte("kubix hello")

// An Option configures a Bus.
type Option func(*Bus)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithHandler sets the handler responder channel workers call.
func WithHandler(h handler.Handler) Option {
	return func(b *Bus) {
		b.handler = h
	}
}

// WithBusID sets the connector identity stamped on outgoing frames.
// Frames carrying any other identity are dropped.
func WithBusID(id frame.BusID) Option {
	return func(b *Bus) {
		b.busID = id
	}
}

func WithMaxPayload(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxPayload = n
		}
	}
}

// WithWaitTick sets how often blocked callers re-check their channel. Zero
// waits for an explicit wake only.
func WithWaitTick(d time.Duration) Option {
	return func(b *Bus) {
		b.tick = d
	}
}

// WithFatalErrors sets how many consecutive temporary receive errors the
// dispatcher tolerates before giving up.
func WithFatalErrors(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.fatalErrors = n
		}
	}
}

// WithMaxChannels bounds the number of responder channel workers. Open
// requests beyond it are refused with frame.ResultRejected.
func WithMaxChannels(n int) Option {
	return func(b *Bus) {
		b.maxChannels = n
	}
}

// WithOpenRate limits how fast the responder accepts new channels.
func WithOpenRate(limit rate.Limit, burst int) Option {
	return func(b *Bus) {
		if limit > 0 {
			b.limiter = rate.NewLimiter(limit, burst)
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.stopTimeout = d
		}
	}
}

func WithGreeting(p []byte) Option {
	return func(b *Bus) {
		b.greeting = p
	}
}
