// File: dpdk/port_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk_test

import (
	"testing"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPortSpec(name string, cores []dpdk.CoreId) dpdk.PortSpec {
	return dpdk.PortSpec{
		Name:          name,
		Device:        "sim0",
		Cores:         cores,
		RxDescriptors: 256,
		TxDescriptors: 256,
	}
}

func TestConfigurePortLifecycle(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()
	require.NoError(t, e.Init([]string{"-l", "0,1", "--master-lcore", "0"}))

	p, err := e.ConfigurePort(newTestPortSpec("eth0", []dpdk.CoreId{dpdk.NewCoreId(1)}))
	require.NoError(t, err)
	assert.Equal(t, dpdk.PortConfigured, p.State())

	require.NoError(t, p.Start())
	assert.Equal(t, dpdk.PortStarted, p.State())

	p.Stop()
	assert.Equal(t, dpdk.PortStopped, p.State())
	p.Stop() // idempotent
	assert.Equal(t, dpdk.PortStopped, p.State())
}

func TestConfigurePortRejectsUnknownCore(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()
	require.NoError(t, e.Init([]string{"-l", "0", "--master-lcore", "0"}))

	_, err = e.ConfigurePort(newTestPortSpec("eth0", []dpdk.CoreId{dpdk.NewCoreId(7)}))
	var portErr *dpdk.PortError
	require.ErrorAs(t, err, &portErr)
	assert.Equal(t, dpdk.PortErrCoreUnknown, portErr.Kind)
}

func TestConfigurePortRejectsBadDescriptorCount(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()
	require.NoError(t, e.Init([]string{"-l", "0", "--master-lcore", "0"}))

	spec := newTestPortSpec("eth0", []dpdk.CoreId{dpdk.NewCoreId(0)})
	spec.RxDescriptors = 1
	_, err = e.ConfigurePort(spec)
	var portErr *dpdk.PortError
	require.ErrorAs(t, err, &portErr)
	assert.Equal(t, dpdk.PortErrInvalidDescriptorCount, portErr.Kind)
}

func TestPortStartFromWrongStatePanics(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()
	require.NoError(t, e.Init([]string{"-l", "0", "--master-lcore", "0"}))

	p, err := e.ConfigurePort(newTestPortSpec("eth0", []dpdk.CoreId{dpdk.NewCoreId(0)}))
	require.NoError(t, err)
	require.NoError(t, p.Start())
	assert.Panics(t, func() { p.Start() })
}
