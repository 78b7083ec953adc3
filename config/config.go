// Package config loads kubix settings from defaults, an optional YAML
// file and KUBIX_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/internal/logging"
	"github.com/progrium/kubix-go/metrics"
	"github.com/progrium/kubix-go/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable, e.g.
// KUBIX_BUS_MAX_CHANNELS.
const EnvPrefix = "KUBIX"

type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LogConfig       `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// BusConfig holds the runtime parameters of a bus.
type BusConfig struct {
	Idx         uint32        `yaml:"idx" envconfig:"IDX"`
	Val         uint32        `yaml:"val" envconfig:"VAL"`
	MaxPayload  int           `yaml:"max_payload" envconfig:"MAX_PAYLOAD"`
	WaitTick    time.Duration `yaml:"wait_tick" envconfig:"WAIT_TICK"`
	FatalErrors int           `yaml:"fatal_errors" envconfig:"FATAL_ERRORS"`
	MaxChannels int           `yaml:"max_channels" envconfig:"MAX_CHANNELS"`
	OpenRate    float64       `yaml:"open_rate" envconfig:"OPEN_RATE"`
	OpenBurst   int           `yaml:"open_burst" envconfig:"OPEN_BURST"`
	StopTimeout time.Duration `yaml:"stop_timeout" envconfig:"STOP_TIMEOUT"`
	Greeting    string        `yaml:"greeting" envconfig:"GREETING"`
}

type TransportConfig struct {
	URL string `yaml:"url" envconfig:"URL"`
}

type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEV"`
}

// MetricsConfig holds the address the metrics and diagnostics endpoints
// listen on. Empty disables them.
type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Idx:         frame.DefaultBusID.Idx,
			Val:         frame.DefaultBusID.Val,
			MaxPayload:  frame.MaxPayload,
			WaitTick:    bus.DefaultWaitTick,
			FatalErrors: bus.DefaultFatalErrors,
			MaxChannels: bus.DefaultMaxChannels,
			OpenBurst:   1,
			StopTimeout: bus.DefaultStopTimeout,
			Greeting:    string(bus.DefaultGreeting),
		},
		Transport: TransportConfig{
			URL: "tcp://127.0.0.1:4040",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if path
// is not empty, and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Bus.MaxPayload <= 0 || c.Bus.MaxPayload > math.MaxInt16 {
		errs = append(errs, fmt.Errorf("bus.max_payload %d out of range", c.Bus.MaxPayload))
	}
	if c.Bus.FatalErrors < 1 {
		errs = append(errs, errors.New("bus.fatal_errors must be positive"))
	}
	if c.Bus.WaitTick < 0 {
		errs = append(errs, errors.New("bus.wait_tick must not be negative"))
	}
	if c.Bus.OpenRate < 0 || (c.Bus.OpenRate > 0 && c.Bus.OpenBurst < 1) {
		errs = append(errs, fmt.Errorf("bus.open_rate %v with burst %d", c.Bus.OpenRate, c.Bus.OpenBurst))
	}
	if len(c.Bus.Greeting) > c.Bus.MaxPayload {
		errs = append(errs, errors.New("bus.greeting longer than max_payload"))
	}
	if scheme, _ := transport.ParseURL(c.Transport.URL); transport.Dialers[scheme] == nil {
		errs = append(errs, fmt.Errorf("transport.url: unknown scheme %q", scheme))
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// BusID returns the configured connector identity.
func (c *Config) BusID() frame.BusID {
	return frame.BusID{Idx: c.Bus.Idx, Val: c.Bus.Val}
}

// BusOptions converts the bus settings into options for bus.New, adding
// log and m when they are not nil.
func (c *Config) BusOptions(log *zap.Logger, m *metrics.Metrics) []bus.Option {
	opts := []bus.Option{
		bus.WithBusID(c.BusID()),
		bus.WithMaxPayload(c.Bus.MaxPayload),
		bus.WithWaitTick(c.Bus.WaitTick),
		bus.WithFatalErrors(c.Bus.FatalErrors),
		bus.WithMaxChannels(c.Bus.MaxChannels),
		bus.WithStopTimeout(c.Bus.StopTimeout),
		bus.WithGreeting([]byte(c.Bus.Greeting)),
	}
	if c.Bus.OpenRate > 0 {
		opts = append(opts, bus.WithOpenRate(rate.Limit(c.Bus.OpenRate), c.Bus.OpenBurst))
	}
	if log != nil {
		opts = append(opts, bus.WithLogger(log))
	}
	if m != nil {
		opts = append(opts, bus.WithMetrics(m))
	}
	return opts
}

// LoggingConfig returns the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Development = c.Logging.Development
	return cfg
}
