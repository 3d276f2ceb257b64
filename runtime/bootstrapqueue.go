// File: runtime/bootstrapqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// bootstrapQueue holds the two-stage install jobs (installer closures and
// periodic-task registrations) a core must run before, during, and after
// its park period. Backed by eapache/queue's growable ring buffer so a
// burst of installs posted while a core is still parked never blocks the
// builder thread on a fixed-size channel.

package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

type bootstrapQueue struct {
	mu     sync.Mutex
	q      *queue.Queue
	notify chan struct{}
	closed atomic.Bool
}

func newBootstrapQueue() *bootstrapQueue {
	return &bootstrapQueue{q: queue.New(), notify: make(chan struct{}, 1)}
}

// push enqueues fn. Returns ErrSpawnFailed if the owning executor has
// already shut down.
func (b *bootstrapQueue) push(fn func()) error {
	if b.closed.Load() {
		return ErrSpawnFailed
	}
	b.mu.Lock()
	b.q.Add(fn)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// drain removes and returns every job currently queued.
func (b *bootstrapQueue) drain() []func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.q.Length()
	if n == 0 {
		return nil
	}
	out := make([]func(), 0, n)
	for b.q.Length() > 0 {
		out = append(out, b.q.Remove().(func()))
	}
	return out
}

// markClosed rejects all future pushes; called once the owning executor's
// run loop has exited.
func (b *bootstrapQueue) markClosed() {
	b.closed.Store(true)
}
