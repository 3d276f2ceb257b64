// File: runtime/runtime_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package runtime_test

import (
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/momentics/dpdkrt/runtime"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func baseSettings() runtime.RuntimeSettings {
	s := runtime.DefaultRuntimeSettings()
	s.MasterCore = dpdk.NewCoreId(0)
	s.WorkerCores = []runtime.CoreId{dpdk.NewCoreId(1)}
	s.Ports = []runtime.PortConfig{{
		Name:          "eth0",
		Device:        "sim0",
		Cores:         []runtime.CoreId{dpdk.NewCoreId(1)},
		RxDescriptors: 256,
		TxDescriptors: 256,
	}}
	return s
}

// Execute in timeout mode returns once the configured duration elapses.
func TestExecuteTimeoutMode(t *testing.T) {
	s := baseSettings()
	s.Duration = 300 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	start := time.Now()
	require.NoError(t, rt.Execute())
	assert.WithinDuration(t, start.Add(s.Duration), time.Now(), 500*time.Millisecond)
}

// In signal mode, with the default handler, SIGINT terminates Execute.
func TestExecuteSignalModeDefaultHandler(t *testing.T) {
	s := baseSettings()
	s.WorkerCores = []runtime.CoreId{dpdk.NewCoreId(1), dpdk.NewCoreId(2)}
	s.Ports[0].Cores = []runtime.CoreId{dpdk.NewCoreId(1)}

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	done := make(chan error, 1)
	go func() { done <- rt.Execute() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("execute did not return after SIGINT")
	}
}

// A filtered on_signal callback can reject SIGHUP while SIGTERM still
// terminates Execute.
func TestExecuteSignalModeFiltered(t *testing.T) {
	s := baseSettings()

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	var admitted int32
	rt.SetOnSignal(func(sig runtime.UnixSignal) bool {
		if sig == syscall.SIGHUP {
			return false
		}
		atomic.AddInt32(&admitted, 1)
		return true
	})

	done := make(chan error, 1)
	go func() { done <- rt.Execute() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))
	time.Sleep(50 * time.Millisecond)

	select {
	case <-done:
		t.Fatal("execute returned after SIGHUP, which must be ignored")
	default:
	}

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&admitted))
	case <-time.After(3 * time.Second):
		t.Fatal("execute did not return after SIGTERM")
	}
}

// AddPipelineToPort on an unregistered port name fails without disturbing
// the runtime's usability.
func TestAddPipelineToPortUnknown(t *testing.T) {
	s := baseSettings()
	s.Duration = 100 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.AddPipelineToPort("ethX", func(q dpdk.PortQueue) func() { return func() {} })
	assert.ErrorIs(t, err, runtime.ErrPortNotFound)

	// runtime remains usable: a subsequent valid install succeeds.
	err = rt.AddPipelineToPort("eth0", func(q dpdk.PortQueue) func() { return func() {} })
	assert.NoError(t, err)

	require.NoError(t, rt.Execute())
}

// AddPipelineToCore on a worker core with no queues assigned is rejected.
func TestAddPipelineToCoreNotAssigned(t *testing.T) {
	s := baseSettings()
	s.WorkerCores = []runtime.CoreId{dpdk.NewCoreId(1), dpdk.NewCoreId(2)}
	s.Ports[0].Cores = []runtime.CoreId{dpdk.NewCoreId(1)}
	s.Duration = 100 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.AddPipelineToCore(dpdk.NewCoreId(2), func(q map[string]dpdk.PortQueue) func() { return func() {} })
	var coreErr *runtime.CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, runtime.CoreErrNotAssigned, coreErr.Kind)

	require.NoError(t, rt.Execute())
}

func TestAddPipelineToCoreUnknown(t *testing.T) {
	s := baseSettings()
	s.Duration = 100 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.AddPipelineToCore(dpdk.NewCoreId(9), func(q map[string]dpdk.PortQueue) func() { return func() {} })
	var coreErr *runtime.CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, runtime.CoreErrNotFound, coreErr.Kind)

	require.NoError(t, rt.Execute())
}

// A periodic task fires approximately once per period over the run.
func TestPeriodicTaskFiresApproximatelyNTimes(t *testing.T) {
	s := baseSettings()
	s.Duration = 1 * time.Second

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	var counter int64
	require.NoError(t, rt.AddPeriodicTaskToCore(dpdk.NewCoreId(1), func() {
		atomic.AddInt64(&counter, 1)
	}, 100*time.Millisecond))

	require.NoError(t, rt.Execute())

	n := atomic.LoadInt64(&counter)
	assert.GreaterOrEqual(t, n, int64(9))
	assert.LessOrEqual(t, n, int64(11))
}

// CoreMap has exactly one entry per configured worker, and none for the
// master core.
func TestCoreMapInvariants(t *testing.T) {
	s := baseSettings()
	s.WorkerCores = []runtime.CoreId{dpdk.NewCoreId(1), dpdk.NewCoreId(2), dpdk.NewCoreId(3)}
	s.Ports[0].Cores = []runtime.CoreId{dpdk.NewCoreId(1)}
	s.Duration = 100 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	assert.ElementsMatch(t, s.WorkerCores, rt.WorkerCores())
	assert.False(t, rt.IsWorker(s.MasterCore))

	portCores, ok := rt.PortCores(s.Ports[0].Name)
	require.True(t, ok)
	assert.ElementsMatch(t, s.Ports[0].Cores, portCores, "port queue keys must equal its configured core list")

	distinctSockets := make(map[runtime.SocketId]struct{})
	for _, c := range s.WorkerCores {
		distinctSockets[rt.SocketOf(c)] = struct{}{}
	}
	assert.Len(t, rt.MempoolSockets(), len(distinctSockets), "exactly one mempool per represented socket")

	require.NoError(t, rt.Execute())
}

// A spawned pipeline task never executes before Execute unparks its core.
func TestNoTaskRunsBeforeExecute(t *testing.T) {
	s := baseSettings()
	s.Duration = 200 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	var ran int32
	require.NoError(t, rt.AddPipelineToPort("eth0", func(q dpdk.PortQueue) func() {
		return func() { atomic.AddInt32(&ran, 1) }
	}))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran), "installed task must not run before Execute")

	require.NoError(t, rt.Execute())
	assert.Greater(t, atomic.LoadInt32(&ran), int32(0), "installed task must run after Execute")
}

// After Execute returns, every configured port has been stopped.
func TestPortsStoppedAfterExecute(t *testing.T) {
	s := baseSettings()
	s.Duration = 100 * time.Millisecond

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.Execute())

	for _, pc := range s.Ports {
		state, ok := rt.PortState(pc.Name)
		require.True(t, ok)
		assert.Equal(t, dpdk.PortStopped, state)
	}
}

func TestSettingsValidateRejectsMasterAsWorker(t *testing.T) {
	s := baseSettings()
	s.WorkerCores = append(s.WorkerCores, s.MasterCore)
	assert.Error(t, s.Validate())
}

// SetOnSignal replaces any prior callback: only the latest one observed.
func TestOnSignalReplacesPriorCallback(t *testing.T) {
	s := baseSettings()

	rt, err := runtime.Build(s, testLog())
	require.NoError(t, err)
	defer rt.Close()

	var firstCalled, secondCalled int32
	rt.SetOnSignal(func(runtime.UnixSignal) bool {
		atomic.AddInt32(&firstCalled, 1)
		return false
	})
	rt.SetOnSignal(func(runtime.UnixSignal) bool {
		atomic.AddInt32(&secondCalled, 1)
		return true
	})

	done := make(chan error, 1)
	go func() { done <- rt.Execute() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("execute did not return after SIGTERM")
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&firstCalled), "replaced callback must never run")
	assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalled))
}
