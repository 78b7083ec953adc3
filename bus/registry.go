package bus

import (
	"sync"

	"github.com/progrium/kubix-go/frame"
	"github.com/progrium/kubix-go/metrics"
)

// Registry maps endpoint keys to channel nodes. Its lock is held only for
// the map operation itself, never while waiting on a node.
type Registry struct {
	mu      sync.RWMutex
	nodes   map[uint64]*Node
	metrics *metrics.Metrics
}

func NewRegistry() *Registry {
	return newRegistry(nil)
}

func newRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		nodes:   make(map[uint64]*Node),
		metrics: m,
	}
}

// Create adds a node in StateInit for key. A destroyed node under the same
// key is replaced; a live one gives ErrAlreadyInUse.
func (r *Registry) Create(key frame.Key) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := key.Packed()
	if old, ok := r.nodes[p]; ok {
		if old.State() != StateDestroyed {
			return nil, ErrAlreadyInUse
		}
	} else {
		r.metrics.ChannelAdded()
	}
	n := newNode(key)
	r.nodes[p] = n
	return n, nil
}

// acquire returns the live node for key, creating one if there is none.
func (r *Registry) acquire(key frame.Key) (n *Node, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := key.Packed()
	old, ok := r.nodes[p]
	if ok && old.State() != StateDestroyed {
		return old, false
	}
	if !ok {
		r.metrics.ChannelAdded()
	}
	n = newNode(key)
	r.nodes[p] = n
	return n, true
}

func (r *Registry) Find(key frame.Key) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key.Packed()]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// Remove detaches the node for key and returns it.
func (r *Registry) Remove(key frame.Key) (*Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := key.Packed()
	n, ok := r.nodes[p]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.nodes, p)
	r.metrics.ChannelRemoved()
	return n, nil
}

// remove detaches n only if it is still the node registered for its key.
func (r *Registry) remove(n *Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := n.key.Packed()
	if r.nodes[p] != n {
		return false
	}
	delete(r.nodes, p)
	r.metrics.ChannelRemoved()
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

func (r *Registry) snapshot() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// ForEach calls fn with a snapshot of every node until fn returns false.
// Snapshots are taken under each node's lock after the registry lock has
// been released.
func (r *Registry) ForEach(fn func(NodeInfo) bool) {
	for _, n := range r.snapshot() {
		if !fn(n.Info()) {
			return
		}
	}
}

// Purge removes every node, destroying each and waking its waiter.
func (r *Registry) Purge() []*Node {
	r.mu.Lock()
	nodes := make([]*Node, 0, len(r.nodes))
	for p, n := range r.nodes {
		nodes = append(nodes, n)
		delete(r.nodes, p)
		r.metrics.ChannelRemoved()
	}
	r.mu.Unlock()

	for _, n := range nodes {
		n.destroy()
	}
	return nodes
}
