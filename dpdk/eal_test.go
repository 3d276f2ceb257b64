// File: dpdk/eal_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk_test

import (
	"sync"
	"testing"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func TestNewEALSingleton(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	_, err = dpdk.NewEAL(testLogger())
	assert.ErrorIs(t, err, dpdk.ErrEalAlreadyLive)
}

func TestEALInitLaunchesLcores(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	require.NoError(t, e.Init([]string{"-l", "0,1,2", "--master-lcore", "0"}))
	assert.ElementsMatch(t, []dpdk.CoreId{dpdk.NewCoreId(0), dpdk.NewCoreId(1), dpdk.NewCoreId(2)}, e.Lcores())
	assert.Equal(t, dpdk.NewCoreId(0), e.MasterLcore())
}

func TestEALInitRejectsEmptyCoreList(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	err = e.Init(nil)
	assert.ErrorIs(t, err, dpdk.ErrEalInitFailed)
}

func TestExecuteOnLcoreRunsPostedFunction(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	require.NoError(t, e.Init([]string{"-l", "0,1", "--master-lcore", "0"}))

	var wg sync.WaitGroup
	wg.Add(1)
	var ran bool
	e.ExecuteOnLcore(dpdk.NewCoreId(1), func() {
		ran = true
		wg.Done()
	})
	wg.Wait()
	assert.True(t, ran)
}

func TestExecuteOnLcoreUnknownIsNoop(t *testing.T) {
	e, err := dpdk.NewEAL(testLogger())
	require.NoError(t, err)
	defer e.Cleanup()

	require.NoError(t, e.Init([]string{"-l", "0", "--master-lcore", "0"}))
	assert.NotPanics(t, func() {
		e.ExecuteOnLcore(dpdk.NewCoreId(99), func() { t.Fatal("must not run") })
	})
}
