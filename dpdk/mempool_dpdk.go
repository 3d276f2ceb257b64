//go:build dpdk
// +build dpdk

// File: dpdk/mempool_dpdk.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

import "github.com/yerden/go-dpdk/mempool"

type dpdkMempoolBackend struct {
	mp *mempool.Mempool
}

func newDpdkMempoolBackend(mp *mempool.Mempool) *dpdkMempoolBackend {
	return &dpdkMempoolBackend{mp: mp}
}

func (b *dpdkMempoolBackend) alloc() []byte {
	mb, err := b.mp.GetMbuf()
	if err != nil {
		return nil
	}
	return mb.Data()
}

func (b *dpdkMempoolBackend) free(buf []byte) {
	// Buffers returned here were obtained via GetMbuf; the mbuf pointer is
	// recovered from the data slice header by the underlying binding.
	mempool.PutMbufData(buf)
}

func (b *dpdkMempoolBackend) close() {
	b.mp.Free()
}
