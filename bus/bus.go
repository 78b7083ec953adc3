// Package bus implements a bidirectional message bus over a single
// message-framed transport. The initiating side opens channels keyed by
// an endpoint key and exchanges blocking request/response traffic over
// them; the responding side accepts channels and answers them through a
// handler.Handler. One dispatcher goroutine per bus demultiplexes inbound
// frames to channel nodes held in a Registry.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/handler"
	"github.com/progrium/kubix-go/metrics"
	"github.com/progrium/kubix-go/transport"
	"github.com/rs/xid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// pause between retries of a temporary receive error
	// use a `var` so that this can be overridden in tests
	retryPause = 10 * time.Millisecond
)

// Bus is one half of a kubix bus.
type Bus struct {
	id   string
	role Role
	t    transport.Transport
	reg  *Registry

	busID       frame.BusID
	maxPayload  int
	tick        time.Duration
	fatalErrors int
	maxChannels int
	stopTimeout time.Duration
	greeting    []byte

	log     *zap.Logger
	metrics *metrics.Metrics
	handler handler.Handler
	limiter *rate.Limiter
	workers *workerPool

	ctx    context.Context
	cancel context.CancelFunc

	started     atomic.Bool
	operational atomic.Bool
	closing     atomic.Bool
	failures    int

	peer peerState

	errCond *sync.Cond
	err     error
	done    chan struct{}
}

// peerState tracks the control channel handshake.
type peerState struct {
	once     sync.Once
	ready    chan struct{}
	accepted atomic.Bool
	result   frame.Result
	greeting []byte
}

// New returns a bus for role running over t. Call Start to run it.
func New(t transport.Transport, role Role, opts ...Option) *Bus {
	b := &Bus{
		id:          xid.New().String(),
		role:        role,
		t:           t,
		busID:       frame.DefaultBusID,
		maxPayload:  frame.MaxPayload,
		tick:        DefaultWaitTick,
		fatalErrors: DefaultFatalErrors,
		maxChannels: DefaultMaxChannels,
		stopTimeout: DefaultStopTimeout,
		greeting:    DefaultGreeting,
		log:         zap.NewNop(),
		errCond:     sync.NewCond(new(sync.Mutex)),
		done:        make(chan struct{}),
	}
	b.peer.ready = make(chan struct{})
	for _, opt := range opts {
		opt(b)
	}
	if b.handler == nil {
		b.handler = acceptOpens
	}
	b.reg = newRegistry(b.metrics)
	b.workers = newWorkerPool(b.maxChannels)
	b.log = b.log.With(zap.String("bus", b.id), zap.Stringer("role", role))
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// acceptOpens is the handler used when none is configured.
var acceptOpens = handler.HandlerFunc(func(ctx context.Context, req *handler.Request) (handler.Response, error) {
	if req.Op == frame.OpOpen {
		return handler.Reply(nil), nil
	}
	return handler.Fail(frame.ResultImpossibleOp), nil
})

func (b *Bus) ID() string {
	return b.id
}

func (b *Bus) Role() Role {
	return b.role
}

// Registry returns the channel registry of this bus.
func (b *Bus) Registry() *Registry {
	return b.reg
}

// Start runs the dispatcher until ctx is done, the transport fails or the
// bus is closed. The initiator also greets the responder on the control
// channel; use AwaitPeer to wait for the answer.
func (b *Bus) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("kubix: bus already started")
	}
	b.operational.Store(true)
	go b.loop()
	go func() {
		select {
		case <-ctx.Done():
			b.Close()
		case <-b.done:
		}
	}()
	b.log.Info("bus started", zap.Stringer("transport", stringer(b.t)))

	if b.role == Initiator {
		if err := b.send(frame.Frame{Key: frame.ControlKey, Op: frame.OpOpen, Payload: b.greeting}); err != nil {
			return err
		}
	}
	return nil
}

// Operational reports whether the dispatcher is running.
func (b *Bus) Operational() bool {
	return b.operational.Load()
}

// AwaitPeer blocks until the far side has answered the control handshake.
// A refusal is returned as a *HandshakeError.
func (b *Bus) AwaitPeer(ctx context.Context) error {
	select {
	case <-b.peer.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrNotOperational
	}
	if !b.peer.accepted.Load() {
		return &HandshakeError{Key: frame.ControlKey, Result: b.peer.result}
	}
	return nil
}

// PeerAccepted reports whether the control handshake succeeded.
func (b *Bus) PeerAccepted() bool {
	return b.peer.accepted.Load()
}

// PeerGreeting returns the payload the far side sent on the control channel.
func (b *Bus) PeerGreeting() []byte {
	select {
	case <-b.peer.ready:
		return b.peer.greeting
	default:
		return nil
	}
}

// Close stops the dispatcher, closes the transport and purges every
// channel, waking any blocked callers.
func (b *Bus) Close() error {
	if !b.closing.CompareAndSwap(false, true) {
		return nil
	}
	b.cancel()
	err := b.t.Close()
	if !b.started.Load() {
		b.finish(ErrBusClosed)
	}
	if werr := b.workers.Stop(b.stopTimeout); werr != nil {
		b.log.Warn("channel workers still running", zap.Error(werr))
	}
	b.Purge()
	return err
}

// Wait blocks until the bus has shut down, and returns the error causing
// the shutdown.
func (b *Bus) Wait() error {
	b.errCond.L.Lock()
	defer b.errCond.L.Unlock()
	for b.err == nil {
		b.errCond.Wait()
	}
	return b.err
}

func (b *Bus) finish(err error) {
	b.errCond.L.Lock()
	defer b.errCond.L.Unlock()
	if b.err != nil {
		return
	}
	b.err = err
	close(b.done)
	b.errCond.Broadcast()
}

// Channels returns a snapshot of every channel in the registry.
func (b *Bus) Channels() []NodeInfo {
	var infos []NodeInfo
	b.reg.ForEach(func(info NodeInfo) bool {
		infos = append(infos, info)
		return true
	})
	return infos
}

// Purge destroys every channel and returns how many there were.
func (b *Bus) Purge() int {
	nodes := b.reg.Purge()
	if len(nodes) > 0 {
		b.log.Info("purged channels", zap.Int("count", len(nodes)))
	}
	return len(nodes)
}

// Workers returns activity counters for responder channel workers.
func (b *Bus) Workers() PoolStats {
	return b.workers.Stats()
}

// send stamps and encodes f and writes it to the transport.
func (b *Bus) send(f frame.Frame) error {
	f.ID = b.busID
	buf, err := frame.Encode(f, b.maxPayload)
	if err != nil {
		return err
	}
	if err := b.t.Send(buf); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	b.metrics.Sent(f.Op.String())
	return nil
}

// sendOn sends op on an open channel, assigning the node's next sequence
// number.
func (b *Bus) sendOn(n *Node, op frame.Op, result frame.Result, ack uint32, payload []byte) error {
	if len(payload) > b.maxPayload {
		return fmt.Errorf("%w: %d > %d", ErrPayloadOverflow, len(payload), b.maxPayload)
	}
	n.mu.Lock()
	if n.State() != StateOpen {
		n.mu.Unlock()
		return ErrNotOpen
	}
	seq := n.nextSeq()
	n.mu.Unlock()
	return b.send(frame.Frame{
		Key:     n.key,
		Op:      op,
		Result:  result,
		Seq:     seq,
		Ack:     ack,
		Payload: payload,
	})
}

// await blocks on n's next message.
func (b *Bus) await(ctx context.Context, n *Node) (Message, error) {
	start := time.Now()
	m, err := n.take(ctx, b.tick)
	b.metrics.Waited(time.Since(start))
	return m, err
}

func stringer(v interface{}) fmt.Stringer {
	if s, ok := v.(fmt.Stringer); ok {
		return s
	}
	return typeName{v}
}

type typeName struct {
	v interface{}
}

func (t typeName) String() string {
	return fmt.Sprintf("%T", t.v)
}
