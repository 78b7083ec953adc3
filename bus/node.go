package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/progrium/kubix-go/frame"
)

// Message is a payload taken from a channel together with the op and
// result of the frame that carried it.
type Message struct {
	Op      frame.Op
	Result  frame.Result
	Seq     uint32
	Payload []byte
}

// Node is the per-channel state kept in a Registry. Its fields are
// guarded by its own lock; the state may also be read without it.
type Node struct {
	key frame.Key

	mu          sync.Mutex
	state       atomic.Int32
	seq         uint32
	pending     Message
	ready       bool
	lastOp      frame.Op
	lastResult  frame.Result
	handshaking bool

	slot slot
}

func newNode(key frame.Key) *Node {
	n := &Node{
		key:  key,
		seq:  1,
		slot: newSlot(),
	}
	n.state.Store(int32(StateInit))
	return n
}

func (n *Node) Key() frame.Key {
	return n.key
}

func (n *Node) State() State {
	return State(n.state.Load())
}

// setState must be called with n.mu held.
func (n *Node) setState(s State) {
	n.state.Store(int32(s))
}

// nextSeq must be called with n.mu held.
func (n *Node) nextSeq() uint32 {
	s := n.seq
	n.seq++
	return s
}

// store replaces the pending message with the frame's payload. It reports
// whether an unconsumed message was overwritten. Must be called with n.mu
// held.
func (n *Node) store(f frame.Frame) (lost bool) {
	lost = n.ready
	n.pending = Message{
		Op:      f.Op,
		Result:  f.Result,
		Seq:     f.Seq,
		Payload: f.Payload,
	}
	n.ready = true
	return lost
}

// discard drops any pending message. Must be called with n.mu held.
func (n *Node) discard() {
	n.pending = Message{}
	n.ready = false
}

// take blocks until a message is pending and consumes it. A destroyed node
// with nothing pending returns ErrChannelClosed. The predicate is checked
// under the lock before every wait, and the slot holds a token for any
// signal sent in between, so no delivery is missed.
func (n *Node) take(ctx context.Context, tick time.Duration) (Message, error) {
	for {
		n.mu.Lock()
		if n.ready {
			m := n.pending
			n.discard()
			n.mu.Unlock()
			return m, nil
		}
		if n.State() == StateDestroyed {
			n.mu.Unlock()
			return Message{}, ErrChannelClosed
		}
		n.mu.Unlock()

		if err := n.slot.wait(ctx, tick); err != nil {
			return Message{}, err
		}
	}
}

// destroy moves the node to StateDestroyed and wakes its waiter.
func (n *Node) destroy() {
	n.mu.Lock()
	n.setState(StateDestroyed)
	n.mu.Unlock()
	n.slot.signal()
}

// NodeInfo is a snapshot of a node for diagnostics.
type NodeInfo struct {
	Key        frame.Key    `json:"key"`
	State      State        `json:"state"`
	Seq        uint32       `json:"seq"`
	Pending    int          `json:"pending"`
	LastOp     frame.Op     `json:"last_op"`
	LastResult frame.Result `json:"last_result"`
}

func (n *Node) Info() NodeInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	info := NodeInfo{
		Key:        n.key,
		State:      n.State(),
		Seq:        n.seq,
		LastOp:     n.lastOp,
		LastResult: n.lastResult,
	}
	if n.ready {
		info.Pending = len(n.pending.Payload)
	}
	return info
}
