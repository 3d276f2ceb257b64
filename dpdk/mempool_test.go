// File: dpdk/mempool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk_test

import (
	"testing"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMempoolAllocFreeRoundTrip(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	mp, err := e.CreateMempool("test-pool", 4, 0, dpdk.NewSocketId(0))
	require.NoError(t, err)
	assert.Equal(t, 4, mp.Capacity())
	assert.Equal(t, dpdk.NewSocketId(0), mp.Socket())

	var bufs [][]byte
	for i := 0; i < 4; i++ {
		buf := mp.Alloc()
		require.NotNil(t, buf)
		bufs = append(bufs, buf)
	}
	assert.Nil(t, mp.Alloc(), "pool exhausted past capacity")

	for _, b := range bufs {
		mp.Free(b)
	}
	assert.NotNil(t, mp.Alloc(), "freed buffer must be reusable")

	mp.Close()
}

func TestMempoolRejectsNonPositiveCapacity(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	_, err = e.CreateMempool("bad-pool", 0, 0, dpdk.NewSocketId(0))
	assert.ErrorIs(t, err, dpdk.ErrAllocationFailed)
}
