package handler

import (
	"context"
	"sync"

	"github.com/progrium/kubix-go/frame"
)

// Mux routes requests to handlers by operation code. Ops without a handler
// are answered with frame.ResultImpossibleOp unless a fallback is set.
type Mux struct {
	mu       sync.RWMutex
	handlers map[frame.Op]Handler
	fallback Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[frame.Op]Handler)}
}

func (m *Mux) Handle(op frame.Op, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[op] = h
}

func (m *Mux) HandleFunc(op frame.Op, f func(context.Context, *Request) (Response, error)) {
	m.Handle(op, HandlerFunc(f))
}

// Fallback sets the handler for ops without their own.
func (m *Mux) Fallback(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = h
}

// Match returns the handler for op, if any.
func (m *Mux) Match(op frame.Op) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.handlers[op]; ok {
		return h, true
	}
	if m.fallback != nil {
		return m.fallback, true
	}
	return nil, false
}

func (m *Mux) HandleFrame(ctx context.Context, req *Request) (Response, error) {
	h, ok := m.Match(req.Op)
	if !ok {
		return Fail(frame.ResultImpossibleOp), nil
	}
	return h.HandleFrame(ctx, req)
}
