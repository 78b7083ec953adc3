package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrPoolFull    = errors.New("kubix: channel worker limit reached")
	ErrPoolStopped = errors.New("kubix: channel workers stopped")
	ErrStopTimeout = errors.New("kubix: timed out waiting for channel workers")
)

// workerPool runs long-lived channel workers, refusing new ones once limit
// are running.
type workerPool struct {
	group errgroup.Group
	limit int

	mu      sync.Mutex
	stopped bool

	running  atomic.Int64
	started  atomic.Int64
	rejected atomic.Int64
}

// PoolStats is a snapshot of worker activity.
type PoolStats struct {
	Limit    int   `json:"limit"`
	Running  int64 `json:"running"`
	Started  int64 `json:"started"`
	Rejected int64 `json:"rejected"`
}

// newWorkerPool bounds the pool to limit workers. A limit of zero or less
// leaves it unbounded.
func newWorkerPool(limit int) *workerPool {
	p := &workerPool{limit: limit}
	if limit > 0 {
		p.group.SetLimit(limit)
	}
	return p
}

// Go starts fn without blocking.
func (p *workerPool) Go(ctx context.Context, fn func(context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}
	p.running.Add(1)
	ok := p.group.TryGo(func() error {
		defer p.running.Add(-1)
		fn(ctx)
		return nil
	})
	if !ok {
		p.running.Add(-1)
		p.rejected.Add(1)
		return ErrPoolFull
	}
	p.started.Add(1)
	return nil
}

// Stop refuses new workers and waits up to timeout for running ones to
// return. Workers are expected to watch the context they were given.
func (p *workerPool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

func (p *workerPool) Stats() PoolStats {
	return PoolStats{
		Limit:    p.limit,
		Running:  p.running.Load(),
		Started:  p.started.Load(),
		Rejected: p.rejected.Load(),
	}
}
