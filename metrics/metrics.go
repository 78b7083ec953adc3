// Package metrics holds the Prometheus collectors exported by a bus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all bus collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	FramesReceived *prometheus.CounterVec
	FramesSent     *prometheus.CounterVec
	FramesDropped  *prometheus.CounterVec
	ProtocolErrors *prometheus.CounterVec

	ChannelsActive   prometheus.Gauge
	ChannelsOpened   prometheus.Counter
	ChannelsRejected prometheus.Counter

	DataLoss      prometheus.Counter
	HandlerErrors prometheus.Counter
	TransportErrs *prometheus.CounterVec
	WaitDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesReceived: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubix_frames_received_total",
				Help: "Frames accepted by the dispatcher",
			},
			[]string{"op"},
		),
		FramesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubix_frames_sent_total",
				Help: "Frames written to the transport",
			},
			[]string{"op"},
		),
		FramesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubix_frames_dropped_total",
				Help: "Frames dropped before reaching a channel",
			},
			[]string{"reason"},
		),
		ProtocolErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubix_protocol_errors_total",
				Help: "Frames refused by the session state machine",
			},
			[]string{"outcome"},
		),
		ChannelsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "kubix_channels_active",
				Help: "Channels currently in the registry",
			},
		),
		ChannelsOpened: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kubix_channels_opened_total",
				Help: "Channels that reached the open state",
			},
		),
		ChannelsRejected: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kubix_channels_rejected_total",
				Help: "Open requests refused for lack of capacity",
			},
		),
		DataLoss: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kubix_data_loss_total",
				Help: "Payloads overwritten before they were consumed",
			},
		),
		HandlerErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "kubix_handler_errors_total",
				Help: "Errors returned by the payload handler",
			},
		),
		TransportErrs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kubix_transport_errors_total",
				Help: "Transport receive errors",
			},
			[]string{"kind"},
		),
		WaitDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kubix_wait_duration_seconds",
				Help:    "Time callers spent blocked on a channel",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
	}
}

func (m *Metrics) Received(op string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(op).Inc()
}

func (m *Metrics) Sent(op string) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(op).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProtocolError(outcome string) {
	if m == nil {
		return
	}
	m.ProtocolErrors.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChannelAdded() {
	if m == nil {
		return
	}
	m.ChannelsActive.Inc()
}

func (m *Metrics) ChannelRemoved() {
	if m == nil {
		return
	}
	m.ChannelsActive.Dec()
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.ChannelsOpened.Inc()
}

func (m *Metrics) ChannelRejected() {
	if m == nil {
		return
	}
	m.ChannelsRejected.Inc()
}

func (m *Metrics) Lost() {
	if m == nil {
		return
	}
	m.DataLoss.Inc()
}

func (m *Metrics) HandlerError() {
	if m == nil {
		return
	}
	m.HandlerErrors.Inc()
}

func (m *Metrics) TransportError(temporary bool) {
	if m == nil {
		return
	}
	kind := "fatal"
	if temporary {
		kind = "temporary"
	}
	m.TransportErrs.WithLabelValues(kind).Inc()
}

func (m *Metrics) Waited(d time.Duration) {
	if m == nil {
		return
	}
	m.WaitDuration.Observe(d.Seconds())
}
