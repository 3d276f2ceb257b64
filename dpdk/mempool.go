// File: dpdk/mempool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mempool is a fixed-capacity pool of uniformly sized packet buffers bound
// to exactly one NUMA socket at creation time.

package dpdk

import "sync"

// mempoolBackend is implemented once per EAL backend (real DPDK rte_mempool,
// or the pure-Go simulation).
type mempoolBackend interface {
	alloc() []byte
	free(buf []byte)
	close()
}

// Mempool is a fixed-capacity, single-socket pool of packet buffers.
type Mempool struct {
	name      string
	capacity  int
	cacheSize int
	socket    SocketId

	mu      sync.Mutex
	backend mempoolBackend
	closed  bool
}

func newMempool(name string, capacity, cacheSize int, socket SocketId, backend mempoolBackend) *Mempool {
	return &Mempool{
		name:      name,
		capacity:  capacity,
		cacheSize: cacheSize,
		socket:    socket,
		backend:   backend,
	}
}

// Name returns the mempool's configured name.
func (m *Mempool) Name() string { return m.name }

// Socket returns the NUMA socket this pool is bound to.
func (m *Mempool) Socket() SocketId { return m.socket }

// Capacity returns the configured buffer count.
func (m *Mempool) Capacity() int { return m.capacity }

// Alloc draws one buffer from the pool. Callers must only draw from the
// mempool of their own socket, to keep the datapath free of cross-socket
// memory traffic; this is enforced by construction in the runtime package,
// not checked here at the allocation boundary.
func (m *Mempool) Alloc() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.alloc()
}

// Free returns a buffer to the pool.
func (m *Mempool) Free(buf []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend.free(buf)
}

// Close releases the pool. Idempotent.
func (m *Mempool) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.backend.close()
}
