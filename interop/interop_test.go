package interop

import (
	"context"
	"testing"
	"time"

	"github.com/progrium/kubix-go/bus"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func runCheck(t *testing.T, c codec.Codec) *Service {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc := &Service{Codec: c}
	a, z := transport.Pipe()
	rb := bus.New(z, bus.Responder, bus.WithHandler(svc.Handler()))
	fatal(rb.Start(ctx), t)
	defer rb.Close()

	ib := bus.New(a, bus.Initiator)
	fatal(ib.Start(ctx), t)
	defer ib.Close()

	require.NoError(t, Check(ctx, ib, c, 100, nil))
	return svc
}

func TestCheckJSON(t *testing.T) {
	svc := runCheck(t, codec.JSONCodec{})
	assert.Equal(t, int64(2), svc.Opens())
	assert.Equal(t, int64(1), svc.Reports())
}

func TestCheckCBOR(t *testing.T) {
	runCheck(t, codec.CBORCodec{})
}

func TestServiceUnknownMethod(t *testing.T) {
	svc := &Service{Codec: codec.JSONCodec{}}
	_, err := svc.call(context.Background(), frame.Key{}, Call{Method: "nope"})
	assert.Error(t, err)
}
