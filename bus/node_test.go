package bus

import (
	"context"
	"testing"
	"time"

	"github.com/progrium/kubix-go/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNode(key frame.Key) *Node {
	n := newNode(key)
	n.mu.Lock()
	n.setState(StateOpen)
	n.mu.Unlock()
	return n
}

// deliver mimics the dispatcher write path.
func deliver(n *Node, payload []byte) bool {
	n.mu.Lock()
	lost := n.store(frame.Frame{Key: n.key, Op: frame.OpMessage, Payload: payload})
	n.mu.Unlock()
	n.slot.signal()
	return lost
}

func TestNoLostWakeup(t *testing.T) {
	n := openNode(frame.Key{Owner: 1, Resource: 1})
	deliver(n, []byte("early"))

	// interrupt-driven wait with no timeout must still see the payload
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := n.take(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "early", string(msg.Payload))
}

func TestWakeWhileWaiting(t *testing.T) {
	for _, tick := range []time.Duration{0, 50 * time.Millisecond} {
		n := openNode(frame.Key{Owner: 1, Resource: 2})
		got := make(chan Message, 1)
		go func() {
			msg, err := n.take(context.Background(), tick)
			if err == nil {
				got <- msg
			}
		}()
		time.Sleep(10 * time.Millisecond)
		deliver(n, []byte("late"))

		select {
		case msg := <-got:
			assert.Equal(t, "late", string(msg.Payload))
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter with tick %s never woke", tick)
		}
	}
}

func TestRoundTripClearsPending(t *testing.T) {
	n := openNode(frame.Key{Owner: 4, Resource: 4})
	payload := []byte{0, 1, 2, 3, 0}
	deliver(n, payload)
	assert.Equal(t, len(payload), n.Info().Pending)

	msg, err := n.take(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, payload, msg.Payload)
	assert.Len(t, msg.Payload, 5)
	assert.Equal(t, 0, n.Info().Pending)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = n.take(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDataLossFlag(t *testing.T) {
	n := openNode(frame.Key{Owner: 5, Resource: 5})
	assert.False(t, deliver(n, []byte("first")))
	assert.True(t, deliver(n, []byte("second")))

	msg, err := n.take(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(msg.Payload))
}

func TestDestroyWakesWaiter(t *testing.T) {
	n := openNode(frame.Key{Owner: 6, Resource: 6})
	errs := make(chan error, 1)
	go func() {
		_, err := n.take(context.Background(), 0)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	n.destroy()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrChannelClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestSequence(t *testing.T) {
	n := newNode(frame.Key{})
	n.mu.Lock()
	assert.Equal(t, uint32(1), n.nextSeq())
	assert.Equal(t, uint32(2), n.nextSeq())
	n.mu.Unlock()
	assert.Equal(t, uint32(3), n.Info().Seq)
}
