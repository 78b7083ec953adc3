package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/transport"
	"go.uber.org/zap"
)

// loop runs the dispatcher. It will process frames until an error is
// encountered. To synchronize on loop exit, use Bus.Wait.
func (b *Bus) loop() {
	var err error
	for err == nil {
		err = b.onePacket()
	}

	b.operational.Store(false)
	b.cancel()
	b.t.Close()
	if b.closing.Load() {
		err = ErrBusClosed
	} else {
		b.log.Error("dispatcher stopped", zap.Error(err))
	}
	b.finish(err)
}

// onePacket reads and processes one frame. Only transport failures are
// returned; everything wrong with a frame itself is logged and dropped.
func (b *Bus) onePacket() error {
	raw, err := b.t.Receive()
	if err != nil {
		if b.closing.Load() {
			return ErrBusClosed
		}
		temporary := transport.IsTemporary(err)
		b.metrics.TransportError(temporary)
		if temporary {
			b.failures++
			if b.failures < b.fatalErrors {
				b.log.Debug("retrying receive", zap.Error(err), zap.Int("failures", b.failures))
				select {
				case <-time.After(retryPause):
				case <-b.ctx.Done():
				}
				return nil
			}
		}
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	b.failures = 0

	f, err := frame.Decode(raw, b.maxPayload)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, frame.ErrPayloadOverflow) {
			reason = "overflow"
		}
		b.metrics.Dropped(reason)
		b.log.Warn("dropping frame", zap.Error(err), zap.Int("size", len(raw)))
		return nil
	}
	if f.ID != b.busID {
		b.metrics.Dropped("foreign-bus")
		b.log.Debug("spurious frame",
			zap.Uint32("idx", f.ID.Idx), zap.Uint32("val", f.ID.Val))
		return nil
	}
	b.metrics.Received(f.Op.String())

	if f.Key.IsControl() {
		b.control(f)
		return nil
	}
	b.dispatch(f)
	return nil
}

// control handles the handshake between the two bus halves.
func (b *Bus) control(f frame.Frame) {
	if f.Op != frame.OpOpen {
		b.log.Debug("ignoring control frame", zap.Stringer("op", f.Op))
		return
	}
	switch b.role {
	case Responder:
		b.log.Info("peer connected", zap.ByteString("greeting", f.Payload))
		b.settlePeer(frame.ResultOK, f.Payload)
		if err := b.send(frame.Frame{
			Key:     frame.ControlKey,
			Op:      frame.OpOpen,
			Ack:     f.Seq,
			Payload: b.greeting,
		}); err != nil {
			b.log.Warn("control reply failed", zap.Error(err))
		}
	case Initiator:
		if f.Result.Failed() {
			b.log.Error("peer refused bus", zap.Stringer("result", f.Result))
		} else {
			b.log.Info("peer accepted bus", zap.ByteString("greeting", f.Payload))
		}
		b.settlePeer(f.Result, f.Payload)
	}
}

func (b *Bus) settlePeer(result frame.Result, greeting []byte) {
	b.peer.once.Do(func() {
		b.peer.result = result
		b.peer.greeting = greeting
		b.peer.accepted.Store(!result.Failed())
		close(b.peer.ready)
	})
}

// dispatch applies f to the channel it names.
func (b *Bus) dispatch(f frame.Frame) {
	log := b.log.With(zap.Stringer("key", f.Key), zap.Stringer("op", f.Op))

	n, err := b.reg.Find(f.Key)
	if err != nil {
		b.unknown(f, log)
		return
	}

	n.mu.Lock()
	step := Transition(b.role, n.State(), f.Op, f.Result)

	switch {
	case step.Outcome == OutcomeTerminal:
		n.mu.Unlock()
		b.reg.remove(n)
		log.Debug("discarded destroyed channel")
		b.unknown(f, log)
		return

	case step.Outcome.IsError():
		state := n.State()
		if f.Result.Failed() {
			// errors are never answered with errors. Only an initiator
			// blocked in Open or Request can be waiting for one.
			if b.role == Initiator && (state == StateHandshaking || state == StateOpen) {
				n.lastOp, n.lastResult = f.Op, f.Result
				n.store(f)
				n.mu.Unlock()
				n.slot.signal()
				log.Debug("peer reported error", zap.Stringer("result", f.Result))
				return
			}
			n.mu.Unlock()
			b.metrics.Dropped("error-echo")
			log.Debug("dropping peer error",
				zap.Stringer("state", state), zap.Stringer("result", f.Result))
			return
		}
		n.lastOp, n.lastResult = f.Op, f.Result
		seq := n.nextSeq()
		n.mu.Unlock()

		b.metrics.ProtocolError(step.Outcome.String())
		log.Warn("protocol violation",
			zap.Stringer("state", state), zap.Stringer("outcome", step.Outcome))
		if err := b.send(frame.Frame{
			Key:    f.Key,
			Op:     f.Op,
			Result: step.Outcome.Result(),
			Seq:    seq,
			Ack:    f.Seq,
		}); err != nil {
			log.Warn("error reply failed", zap.Error(err))
		}
		return
	}

	n.setState(step.Next)
	lost := false
	if step.Deliver {
		lost = n.store(f)
	}
	n.lastOp, n.lastResult = f.Op, f.Result
	n.mu.Unlock()
	n.slot.signal()

	if lost {
		b.metrics.Lost()
		log.Warn("previous data loss")
	}
	switch step.Outcome {
	case OutcomeOpened:
		b.metrics.ChannelOpened()
		log.Debug("channel opened")
	case OutcomeReleased:
		log.Debug("channel released by peer")
	case OutcomeRejected:
		log.Debug("channel refused by peer", zap.Stringer("result", f.Result))
	}
}

// unknown applies the side policy for a frame naming no live channel.
// The responder accepts open requests; everything else is dropped.
func (b *Bus) unknown(f frame.Frame, log *zap.Logger) {
	if b.role == Responder && f.Op == frame.OpOpen && !f.Result.Failed() {
		b.accept(f, log)
		return
	}
	b.metrics.Dropped("unknown-key")
	log.Debug("channel not served", zap.Stringer("result", f.Result))
}

// accept creates an open channel for f and starts its worker. Requests
// beyond the open rate or worker limit are refused.
func (b *Bus) accept(f frame.Frame, log *zap.Logger) {
	if b.limiter != nil && !b.limiter.Allow() {
		b.reject(f, log, "rate")
		return
	}
	n, err := b.reg.Create(f.Key)
	if err != nil {
		log.Warn("accept failed", zap.Error(err))
		return
	}
	n.mu.Lock()
	n.setState(StateOpen)
	n.store(f)
	n.lastOp, n.lastResult = f.Op, f.Result
	n.mu.Unlock()

	if err := b.workers.Go(b.ctx, func(ctx context.Context) {
		b.serve(ctx, n)
	}); err != nil {
		b.reg.remove(n)
		n.destroy()
		b.reject(f, log, err.Error())
		return
	}
	b.metrics.ChannelOpened()
	log.Debug("channel accepted")
	n.slot.signal()
}

func (b *Bus) reject(f frame.Frame, log *zap.Logger, reason string) {
	b.metrics.ChannelRejected()
	log.Warn("refusing channel", zap.String("reason", reason))
	if err := b.send(frame.Frame{
		Key:    f.Key,
		Op:     frame.OpOpen,
		Result: frame.ResultRejected,
		Ack:    f.Seq,
	}); err != nil {
		log.Warn("refusal failed", zap.Error(err))
	}
}
