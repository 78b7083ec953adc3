// Package handler defines the interface a bus responder uses to answer
// channel traffic, along with an op router and a typed adapter.
package handler

import (
	"context"

	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
)

// Request is one inbound payload on an open channel.
type Request struct {
	Key     frame.Key
	Op      frame.Op
	Result  frame.Result
	Payload []byte
}

// Decode decodes the payload into v using c.
func (r *Request) Decode(c codec.Codec, v interface{}) error {
	return codec.Unmarshal(c, r.Payload, v)
}

// Response is what the handler sends back.
type Response struct {
	Result  frame.Result
	Payload []byte
}

// Reply is a successful Response carrying payload.
func Reply(payload []byte) Response {
	return Response{Payload: payload}
}

// Fail is a payload-less Response carrying result.
func Fail(result frame.Result) Response {
	return Response{Result: result}
}

// Handler answers requests. An error is logged by the bus and answered
// with frame.ResultHandlerFailure; the channel stays open.
type Handler interface {
	HandleFrame(ctx context.Context, req *Request) (Response, error)
}

type HandlerFunc func(ctx context.Context, req *Request) (Response, error)

func (f HandlerFunc) HandleFrame(ctx context.Context, req *Request) (Response, error) {
	return f(ctx, req)
}

// Echo answers every request with its own payload.
var Echo = HandlerFunc(func(ctx context.Context, req *Request) (Response, error) {
	return Reply(req.Payload), nil
})
