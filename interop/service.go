// Package interop holds a reference responder service and a conformance
// check that exercises it, for testing two bus implementations against
// each other.
package interop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
	"github.com/progrium/kubix-go/codec"
	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/handler"
)

// Call is the request payload understood by Service.
type Call struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// ErrFail is returned by the "fail" method.
var ErrFail = errors.New("interop: failure requested")

// Service is the reference responder. Open payloads are echoed back as
// the open answer; requests carry a Call encoded with Codec.
type Service struct {
	Codec codec.Codec

	opens   atomic.Int64
	reports atomic.Int64
}

// Handler returns the handler to give the responding bus.
func (s *Service) Handler() handler.Handler {
	mux := handler.NewMux()
	mux.HandleFunc(frame.OpOpen, func(ctx context.Context, req *handler.Request) (handler.Response, error) {
		s.opens.Add(1)
		return handler.Reply(req.Payload), nil
	})
	mux.HandleFunc(frame.OpReport, func(ctx context.Context, req *handler.Request) (handler.Response, error) {
		s.reports.Add(1)
		return handler.Response{}, nil
	})
	mux.Handle(frame.OpRequest, handler.Typed(s.Codec, s.call))
	return mux
}

func (s *Service) call(ctx context.Context, key frame.Key, c Call) (interface{}, error) {
	switch c.Method {
	case "echo":
		return c.Params, nil
	case "sum":
		var nums []int
		if err := mapstructure.WeakDecode(c.Params, &nums); err != nil {
			return nil, err
		}
		sum := 0
		for _, n := range nums {
			sum += n
		}
		return sum, nil
	case "key":
		return key.String(), nil
	case "opens":
		return s.opens.Load(), nil
	case "reports":
		return s.reports.Load(), nil
	case "fail":
		return nil, ErrFail
	}
	return nil, fmt.Errorf("interop: unknown method %q", c.Method)
}

// Opens returns how many channels the service has accepted.
func (s *Service) Opens() int64 {
	return s.opens.Load()
}

func (s *Service) Reports() int64 {
	return s.reports.Load()
}
