package bus

import (
	"context"
	"time"
)

// slot is a single wake token. Signals while the token is pending
// coalesce, so a waiter must re-check its predicate after every wake.
type slot chan struct{}

func newSlot() slot {
	return make(slot, 1)
}

func (s slot) signal() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// wait blocks until signalled or ctx is done. A positive tick also returns
// after tick has elapsed, for callers that poll an external condition.
func (s slot) wait(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		select {
		case <-s:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t := time.NewTimer(tick)
	defer t.Stop()
	select {
	case <-s:
		return nil
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
