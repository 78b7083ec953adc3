package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	resp, err := Echo.HandleFrame(context.Background(), &Request{Payload: []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, frame.ResultOK, resp.Result)
	assert.Equal(t, "hi", string(resp.Payload))
}

func TestMux(t *testing.T) {
	mux := NewMux()
	mux.HandleFunc(frame.OpRequest, func(ctx context.Context, req *Request) (Response, error) {
		return Reply([]byte("req")), nil
	})
	mux.Handle(frame.OpOpen, Echo)

	resp, err := mux.HandleFrame(context.Background(), &Request{Op: frame.OpRequest})
	require.NoError(t, err)
	assert.Equal(t, "req", string(resp.Payload))

	resp, err = mux.HandleFrame(context.Background(), &Request{Op: frame.OpOpen, Payload: []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(resp.Payload))

	resp, err = mux.HandleFrame(context.Background(), &Request{Op: frame.OpReport})
	require.NoError(t, err)
	assert.Equal(t, frame.ResultImpossibleOp, resp.Result)

	mux.Fallback(HandlerFunc(func(ctx context.Context, req *Request) (Response, error) {
		return Response{}, errors.New("fallback")
	}))
	_, err = mux.HandleFrame(context.Background(), &Request{Op: frame.OpReport})
	assert.EqualError(t, err, "fallback")
}

type sum struct {
	A int `json:"a"`
	B int `json:"b"`
}

func TestTyped(t *testing.T) {
	h := Typed(codec.JSONCodec{}, func(ctx context.Context, key frame.Key, in sum) (int, error) {
		if in.A < 0 {
			return 0, errors.New("negative")
		}
		return in.A + in.B + int(key.Owner), nil
	})

	resp, err := h.HandleFrame(context.Background(), &Request{
		Key:     frame.Key{Owner: 100, Resource: 1},
		Payload: []byte(`{"a": 1, "b": "2"}`),
	})
	require.NoError(t, err)
	var out int
	require.NoError(t, codec.Unmarshal(codec.JSONCodec{}, resp.Payload, &out))
	assert.Equal(t, 103, out)

	resp, err = h.HandleFrame(context.Background(), &Request{})
	require.NoError(t, err)
	require.NoError(t, codec.Unmarshal(codec.JSONCodec{}, resp.Payload, &out))
	assert.Equal(t, 0, out)

	_, err = h.HandleFrame(context.Background(), &Request{Payload: []byte(`{"a": -1}`)})
	assert.EqualError(t, err, "negative")

	_, err = h.HandleFrame(context.Background(), &Request{Payload: []byte(`not json`)})
	assert.Error(t, err)
}

func TestTypedCBOR(t *testing.T) {
	h := Typed(codec.CBORCodec{}, func(ctx context.Context, key frame.Key, in []string) (int, error) {
		return len(in), nil
	})
	b, err := codec.Marshal(codec.CBORCodec{}, []string{"x", "y", "z"})
	require.NoError(t, err)

	resp, err := h.HandleFrame(context.Background(), &Request{Payload: b})
	require.NoError(t, err)
	var out int
	require.NoError(t, codec.Unmarshal(codec.CBORCodec{}, resp.Payload, &out))
	assert.Equal(t, 3, out)
}
