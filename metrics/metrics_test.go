package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Received("open")
	m.Sent("open")
	m.Dropped("malformed")
	m.ProtocolError("impossible-op")
	m.ChannelAdded()
	m.ChannelRemoved()
	m.ChannelOpened()
	m.ChannelRejected()
	m.Lost()
	m.HandlerError()
	m.TransportError(true)
	m.Waited(time.Second)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Received("request")
	m.Received("request")
	m.Dropped("unknown-key")
	m.ChannelAdded()
	m.ChannelAdded()
	m.ChannelRemoved()
	m.Lost()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped.WithLabelValues("unknown-key")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoss))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
