// File: runtime/mempoolmap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MempoolMap binds one packet-buffer pool per NUMA socket. NUMA locality
// on the datapath is first-order for performance; coupling
// allocation site to the consumer's socket at build time avoids any runtime
// branch.

package runtime

import (
	"fmt"
	"sync"

	"github.com/momentics/dpdkrt/dpdk"
)

// MempoolMap maps SocketId -> *dpdk.Mempool, constructed once at build time.
type MempoolMap struct {
	mu    sync.Mutex
	pools map[SocketId]*dpdk.Mempool
}

// ConstructMempoolMap creates one mempool per distinct socket in sockets. On
// any single failure all previously created pools in this call are released
// before returning ErrAllocationFailed.
func ConstructMempoolMap(eal dpdk.EAL, capacity, cacheSize int, sockets []SocketId) (*MempoolMap, error) {
	distinct := make(map[SocketId]struct{}, len(sockets))
	for _, s := range sockets {
		distinct[s] = struct{}{}
	}

	m := &MempoolMap{pools: make(map[SocketId]*dpdk.Mempool, len(distinct))}
	for s := range distinct {
		name := fmt.Sprintf("mempool-socket-%d", s.Raw())
		pool, err := eal.CreateMempool(name, capacity, cacheSize, s)
		if err != nil {
			m.releaseAll()
			return nil, fmt.Errorf("%w: socket %v: %v", ErrAllocationFailed, s, err)
		}
		m.pools[s] = pool
	}
	return m, nil
}

func (m *MempoolMap) releaseAll() {
	for _, p := range m.pools {
		p.Close()
	}
	m.pools = make(map[SocketId]*dpdk.Mempool)
}

// Borrow returns the pool for the given socket. Its consumer in this package
// is Runtime's port construction (buildPort), which must serialize its use
// of the returned pool; the pool
// itself is internally mutex-guarded, so concurrent Borrow calls are safe,
// but callers must not assume exclusivity beyond that.
func (m *MempoolMap) Borrow(socket SocketId) (*dpdk.Mempool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[socket]
	if !ok {
		return nil, fmt.Errorf("%w: socket %v", ErrSocketNotFound, socket)
	}
	return p, nil
}

// MempoolBorrow is a temporary dispatcher resolving a socket to its pool.
// Runtime.Build does not use it: port construction calls Borrow directly.
type MempoolBorrow struct {
	m *MempoolMap
}

// BorrowMut returns a MempoolBorrow dispatcher over this map.
func (m *MempoolMap) BorrowMut() MempoolBorrow {
	return MempoolBorrow{m: m}
}

// For resolves socket to its pool via the backing map.
func (b MempoolBorrow) For(socket SocketId) (*dpdk.Mempool, error) {
	return b.m.Borrow(socket)
}

// Close releases every pool in the map. Idempotent.
func (m *MempoolMap) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseAll()
}

// Sockets returns the set of sockets this map has a pool for.
func (m *MempoolMap) Sockets() []SocketId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SocketId, 0, len(m.pools))
	for s := range m.pools {
		out = append(out, s)
	}
	return out
}
