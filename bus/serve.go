package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/handler"
	"go.uber.org/zap"
)

// serve is the responder worker for one channel. It hands each delivered
// payload to the handler and sends back the answer until the channel is
// released or the bus stops.
func (b *Bus) serve(ctx context.Context, n *Node) {
	log := b.log.With(zap.Stringer("key", n.key))
	defer func() {
		if b.reg.remove(n) {
			log.Debug("channel worker done")
		}
	}()

	for {
		msg, err := n.take(ctx, b.tick)
		if err != nil {
			if !errors.Is(err, ErrChannelClosed) && ctx.Err() == nil {
				log.Warn("channel wait failed", zap.Error(err))
			}
			return
		}

		resp, err := b.handle(ctx, n, msg)
		if err != nil {
			b.metrics.HandlerError()
			log.Warn("handler failed", zap.Stringer("op", msg.Op), zap.Error(err))
			resp = handler.Fail(frame.ResultHandlerFailure)
		}

		switch msg.Op {
		case frame.OpOpen:
			if err := b.sendOn(n, frame.OpOpen, resp.Result, msg.Seq, resp.Payload); err != nil {
				log.Warn("open answer failed", zap.Error(err))
			}
			if resp.Result.Failed() {
				log.Debug("channel refused by handler", zap.Stringer("result", resp.Result))
				n.destroy()
				return
			}
		case frame.OpRequest:
			if err := b.sendOn(n, frame.OpMessage, resp.Result, msg.Seq, resp.Payload); err != nil {
				log.Debug("answer not sent", zap.Error(err))
			}
		}
	}
}

func (b *Bus) handle(ctx context.Context, n *Node, msg Message) (resp handler.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{p}
		}
	}()
	return b.handler.HandleFrame(ctx, &handler.Request{
		Key:     n.key,
		Op:      msg.Op,
		Result:  msg.Result,
		Payload: msg.Payload,
	})
}

type panicError struct {
	v interface{}
}

func (p *panicError) Error() string {
	return fmt.Sprintf("kubix: handler panic: %v", p.v)
}
