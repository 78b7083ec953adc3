package bus

import (
	"context"
	"fmt"

	"github.com/progrium/kubix-go/frame"
	"go.uber.org/zap"
)

// Channel is a handle on an open channel. One goroutine at a time may
// block on a channel.
type Channel struct {
	bus  *Bus
	node *Node
}

// Open establishes a channel for key with the responder, sending payload
// with the open request, and blocks until the responder answers. An
// already open channel is returned as is.
//
// If the responder refuses, the error is a *HandshakeError and the channel
// is left handshaking: call Open again to retry or Abandon to drop it.
func (b *Bus) Open(ctx context.Context, key frame.Key, payload []byte) (*Channel, error) {
	if b.role != Initiator {
		return nil, ErrImpossibleOp
	}
	if key.IsControl() {
		return nil, ErrReservedKey
	}
	if len(payload) > b.maxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadOverflow, len(payload), b.maxPayload)
	}
	if !b.Operational() {
		return nil, ErrNotOperational
	}

	n, created := b.reg.acquire(key)
	n.mu.Lock()
	switch n.State() {
	case StateOpen:
		if n.ready && n.pending.Op == frame.OpOpen {
			// confirmation of an earlier attempt nobody waited for
			n.discard()
		}
		n.mu.Unlock()
		return &Channel{bus: b, node: n}, nil
	case StateHandshaking:
		if n.handshaking {
			n.mu.Unlock()
			return nil, ErrHandshakeInProgress
		}
	case StateInit:
		if !created {
			n.mu.Unlock()
			return nil, ErrAlreadyInUse
		}
	}
	n.setState(StateHandshaking)
	n.handshaking = true
	n.discard()
	seq := n.nextSeq()
	n.mu.Unlock()

	log := b.log.With(zap.Stringer("key", key))
	log.Debug("opening channel")

	err := b.send(frame.Frame{Key: key, Op: frame.OpOpen, Seq: seq, Payload: payload})
	var msg Message
	if err == nil {
		msg, err = b.await(ctx, n)
	}

	n.mu.Lock()
	n.handshaking = false
	n.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if msg.Result.Failed() {
		log.Debug("open refused", zap.Stringer("result", msg.Result))
		return nil, &HandshakeError{Key: key, Result: msg.Result, Payload: msg.Payload}
	}
	return &Channel{bus: b, node: n}, nil
}

// Abandon drops a channel that never finished its handshake. If an open
// request was sent, the peer is told to release whatever it set up for it.
func (b *Bus) Abandon(key frame.Key) error {
	n, err := b.reg.Find(key)
	if err != nil {
		return err
	}
	n.mu.Lock()
	state, busy := n.State(), n.handshaking
	switch {
	case busy:
		n.mu.Unlock()
		return ErrHandshakeInProgress
	case state == StateOpen:
		n.mu.Unlock()
		return ErrAlreadyInUse
	}
	n.setState(StateDestroyed)
	seq := n.nextSeq()
	n.mu.Unlock()
	n.slot.signal()
	b.reg.remove(n)

	if state != StateHandshaking {
		return nil
	}
	return b.send(frame.Frame{Key: key, Op: frame.OpRelease, Seq: seq})
}

// Channel returns a handle on the registered channel for key.
func (b *Bus) Channel(key frame.Key) (*Channel, error) {
	n, err := b.reg.Find(key)
	if err != nil {
		return nil, err
	}
	return &Channel{bus: b, node: n}, nil
}

func (c *Channel) Key() frame.Key {
	return c.node.key
}

func (c *Channel) State() State {
	return c.node.State()
}

func (c *Channel) Info() NodeInfo {
	return c.node.Info()
}

// Send writes op on the channel without waiting. Ops this side may not
// originate fail with ErrImpossibleOp and are not sent.
func (c *Channel) Send(op frame.Op, result frame.Result, payload []byte) error {
	if !c.bus.role.CanSend(op) {
		return fmt.Errorf("%w: %s may not send %s", ErrImpossibleOp, c.bus.role, op)
	}
	if op == c.bus.role.releaseOp() {
		return c.release(result, payload)
	}
	return c.bus.sendOn(c.node, op, result, 0, payload)
}

// Request sends payload to the responder and blocks for its answer. A
// failure result from the responder is returned as an error along with
// the message carrying it.
func (c *Channel) Request(ctx context.Context, payload []byte) (Message, error) {
	if err := c.Send(frame.OpRequest, frame.ResultOK, payload); err != nil {
		return Message{}, err
	}
	msg, err := c.bus.await(ctx, c.node)
	if err != nil {
		return Message{}, err
	}
	if err := msg.Result.Err(); err != nil {
		return msg, err
	}
	return msg, nil
}

// Report sends payload to the responder expecting no answer.
func (c *Channel) Report(payload []byte) error {
	return c.Send(frame.OpReport, frame.ResultOK, payload)
}

// Post sends an unsolicited message from the responder.
func (c *Channel) Post(payload []byte) error {
	return c.Send(frame.OpMessage, frame.ResultOK, payload)
}

// Receive blocks for the next message delivered to the channel.
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	return c.bus.await(ctx, c.node)
}

// Release tears the channel down, telling the peer with payload.
func (c *Channel) Release(payload []byte) error {
	return c.release(frame.ResultOK, payload)
}

// Close releases the channel without a payload.
func (c *Channel) Close() error {
	return c.Release(nil)
}

func (c *Channel) release(result frame.Result, payload []byte) error {
	b := c.bus
	if len(payload) > b.maxPayload {
		return fmt.Errorf("%w: %d > %d", ErrPayloadOverflow, len(payload), b.maxPayload)
	}
	n := c.node
	n.mu.Lock()
	if n.State() != StateOpen {
		n.mu.Unlock()
		return ErrNotOpen
	}
	n.setState(StateDestroyed)
	seq := n.nextSeq()
	n.mu.Unlock()
	n.slot.signal()
	b.reg.remove(n)

	return b.send(frame.Frame{
		Key:     n.key,
		Op:      b.role.releaseOp(),
		Result:  result,
		Seq:     seq,
		Payload: payload,
	})
}
