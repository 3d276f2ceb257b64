// File: runtime/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime is the top-level assembly: builds the MempoolMap, CoreMap, and
// Ports in order, installs pipelines and periodic tasks, drives the main
// wait loop, and tears everything down.

package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/sirupsen/logrus"
)

// OnSignalFunc decides, for each delivered signal, whether Execute should
// proceed to shutdown (true) or keep waiting (false).
type OnSignalFunc func(UnixSignal) bool

// Runtime owns the MempoolMap, CoreMap, and the configured ports.
type Runtime struct {
	log logrus.FieldLogger
	eal dpdk.EAL

	settings RuntimeSettings

	mempools *MempoolMap
	cores    *CoreMap

	portsMu sync.Mutex
	ports   map[string]*dpdk.Port

	onSignalMu sync.Mutex
	onSignal   OnSignalFunc

	cleanupOnce sync.Once
}

// Build performs the full assembly sequence: EAL init, mempools, core map,
// then ports. Any step's failure aborts the build and releases everything
// created by prior steps.
func Build(settings RuntimeSettings, log logrus.FieldLogger) (*Runtime, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	eal, err := dpdk.NewEAL(log)
	if err != nil {
		return nil, err
	}

	if err := eal.Init(settings.ToEalArgs()); err != nil {
		return nil, err
	}

	known := make(map[dpdk.CoreId]bool)
	for _, c := range eal.Lcores() {
		known[c] = true
	}
	for _, c := range settings.AllCores() {
		if !known[c] {
			eal.Cleanup()
			return nil, fmt.Errorf("runtime: core %v not available to the eal", c)
		}
	}

	sockets := make([]SocketId, 0, len(settings.AllCores()))
	for _, c := range settings.AllCores() {
		sockets = append(sockets, eal.SocketOf(c))
	}
	mempools, err := ConstructMempoolMap(eal, settings.MempoolCapacity, settings.MempoolCacheSize, sockets)
	if err != nil {
		eal.Cleanup()
		return nil, err
	}

	cores, err := BuildCoreMap(eal, settings.MasterCore, settings.WorkerCores, log)
	if err != nil {
		mempools.Close()
		eal.Cleanup()
		return nil, err
	}

	rt := &Runtime{
		log:      log,
		eal:      eal,
		settings: settings,
		mempools: mempools,
		cores:    cores,
		ports:    make(map[string]*dpdk.Port),
		onSignal: func(UnixSignal) bool { return true },
	}

	for _, pc := range settings.Ports {
		if _, err := rt.buildPort(pc); err != nil {
			rt.teardownPartial()
			return nil, err
		}
	}

	return rt, nil
}

func (rt *Runtime) buildPort(pc PortConfig) (*dpdk.Port, error) {
	rt.portsMu.Lock()
	if _, dup := rt.ports[pc.Name]; dup {
		rt.portsMu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePort, pc.Name)
	}
	rt.portsMu.Unlock()

	spec := dpdk.PortSpec{
		Name:          pc.Name,
		Device:        pc.Device,
		Cores:         pc.Cores,
		RxDescriptors: pc.RxDescriptors,
		TxDescriptors: pc.TxDescriptors,
		MempoolForCore: func(c CoreId) (*dpdk.Mempool, error) {
			if _, ok := rt.cores.Worker(c); !ok {
				return nil, fmt.Errorf("runtime: core %v is not a registered worker", c)
			}
			return rt.mempools.Borrow(rt.eal.SocketOf(c))
		},
	}

	port, err := rt.eal.ConfigurePort(spec)
	if err != nil {
		return nil, err
	}

	for core, q := range port.Queues() {
		w, ok := rt.cores.Worker(core)
		if !ok {
			return nil, dpdk.NewPortError(dpdk.PortErrCoreUnknown, pc.Name, fmt.Errorf("core %v not a worker", core))
		}
		w.registerQueue(pc.Name, q)
	}

	rt.portsMu.Lock()
	rt.ports[pc.Name] = port
	rt.portsMu.Unlock()
	return port, nil
}

// teardownPartial releases everything built so far when assembly fails
// partway through port construction.
func (rt *Runtime) teardownPartial() {
	rt.portsMu.Lock()
	for _, p := range rt.ports {
		p.Stop()
	}
	rt.ports = make(map[string]*dpdk.Port)
	rt.portsMu.Unlock()

	rt.cores.Close()
	rt.mempools.Close()
	rt.eal.Cleanup()
}

// SetOnSignal replaces the callback Execute consults in signal mode. Only
// the latest callback is observed.
func (rt *Runtime) SetOnSignal(fn OnSignalFunc) {
	rt.onSignalMu.Lock()
	defer rt.onSignalMu.Unlock()
	if fn == nil {
		fn = func(UnixSignal) bool { return true }
	}
	rt.onSignal = fn
}

func (rt *Runtime) currentOnSignal() OnSignalFunc {
	rt.onSignalMu.Lock()
	defer rt.onSignalMu.Unlock()
	return rt.onSignal
}

// WorkerCores returns every registered worker core id, for diagnostics.
func (rt *Runtime) WorkerCores() []CoreId { return rt.cores.Workers() }

// IsWorker reports whether core is a registered worker.
func (rt *Runtime) IsWorker(core CoreId) bool {
	_, ok := rt.cores.Worker(core)
	return ok
}

// PortState returns the named port's lifecycle state, for diagnostics.
func (rt *Runtime) PortState(name string) (dpdk.PortState, bool) {
	rt.portsMu.Lock()
	defer rt.portsMu.Unlock()
	p, ok := rt.ports[name]
	if !ok {
		return 0, false
	}
	return p.State(), true
}

// PortCores returns the set of cores the named port has a queue for.
func (rt *Runtime) PortCores(name string) ([]CoreId, bool) {
	rt.portsMu.Lock()
	p, ok := rt.ports[name]
	rt.portsMu.Unlock()
	if !ok {
		return nil, false
	}
	queues := p.Queues()
	out := make([]CoreId, 0, len(queues))
	for c := range queues {
		out = append(out, c)
	}
	return out, true
}

// MempoolSockets returns the set of sockets the runtime's MempoolMap has a
// pool for, for diagnostics.
func (rt *Runtime) MempoolSockets() []SocketId { return rt.mempools.Sockets() }

// SocketOf returns the NUMA socket backing core, as resolved by the EAL at
// build time.
func (rt *Runtime) SocketOf(core CoreId) SocketId { return rt.eal.SocketOf(core) }

// PipelineInstaller produces a repeatedly-callable task from a single
// queue, run once on the queue's owning core.
type PipelineInstaller func(q dpdk.PortQueue) func()

// AddPipelineToPort installs installer on every (core, queue) pair of the
// named port. The installer runs on each target core exactly once; the
// task it returns is polled every run-loop iteration from then on.
func (rt *Runtime) AddPipelineToPort(portName string, installer PipelineInstaller) error {
	rt.portsMu.Lock()
	port, ok := rt.ports[portName]
	rt.portsMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrPortNotFound, portName)
	}

	for core, q := range port.Queues() {
		w, ok := rt.cores.Worker(core)
		if !ok {
			continue // built only from registered workers; defensive only
		}
		queue := q
		if err := w.Spawn(func() {
			task := installer(queue)
			w.InstallTask(task)
		}); err != nil {
			return err
		}
	}
	return nil
}

// CorePipelineInstaller produces a repeatedly-callable task from the full
// port-name -> queue mapping of a single core, run once on that core.
type CorePipelineInstaller func(queues map[string]dpdk.PortQueue) func()

// AddPipelineToCore installs installer once on core, receiving every port
// queue assigned to that core.
func (rt *Runtime) AddPipelineToCore(core CoreId, installer CorePipelineInstaller) error {
	w, ok := rt.cores.Worker(core)
	if !ok {
		return newCoreNotFoundError(core)
	}
	queues := w.Queues()
	if len(queues) == 0 {
		return newCoreNotAssignedError(core)
	}
	return w.Spawn(func() {
		task := installer(queues)
		w.InstallTask(task)
	})
}

// AddPeriodicTaskToCore schedules task to run every period on core's own
// timer, measured between successive invocations.
func (rt *Runtime) AddPeriodicTaskToCore(core CoreId, task func(), period time.Duration) error {
	w, ok := rt.cores.Worker(core)
	if !ok {
		return newCoreNotFoundError(core)
	}
	return w.Spawn(func() {
		w.Timer().schedulePeriodic(period, task)
	})
}

// Execute starts every port, unparks every worker, waits for the configured
// timeout or an admitted signal, then shuts everything down. It returns the
// first error encountered during port start; a clean shutdown returns nil.
// Execute never calls eal_cleanup — that is Close's sole responsibility.
func (rt *Runtime) Execute() error {
	rt.portsMu.Lock()
	ports := make([]*dpdk.Port, 0, len(rt.ports))
	for _, p := range rt.ports {
		ports = append(ports, p)
	}
	rt.portsMu.Unlock()

	var startErr error
	started := make([]*dpdk.Port, 0, len(ports))
	for _, p := range ports {
		if err := p.Start(); err != nil {
			startErr = err
			break
		}
		started = append(started, p)
	}
	if startErr != nil {
		for _, p := range started {
			p.Stop()
		}
		return startErr
	}

	for _, core := range rt.cores.Workers() {
		w, _ := rt.cores.Worker(core)
		w.Unpark()
	}

	rt.wait()

	for _, core := range rt.cores.Workers() {
		w, _ := rt.cores.Worker(core)
		w.Shutdown()
	}
	for _, core := range rt.cores.Workers() {
		w, _ := rt.cores.Worker(core)
		w.Join()
	}

	for _, p := range ports {
		p.Stop()
	}

	return nil
}

func (rt *Runtime) wait() {
	master := rt.cores.Master()
	if rt.settings.Duration > 0 {
		done := make(chan struct{})
		master.Timer().scheduleOnce(rt.settings.Duration, func() { close(done) })
		for {
			master.Timer().poll(time.Now())
			select {
			case <-done:
				return
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}

	reactor := master.reactor
	cb := rt.currentOnSignal()
	for sig := range reactor.Signals() {
		if cb(sig) {
			return
		}
	}
}

// Close releases the core map, the mempools, and the EAL. It is the sole
// caller of eal_cleanup, invoked unconditionally exactly once; a cleanup
// failure is fatal (panic), matching the original source's unwrap() on
// eal_cleanup in Drop.
func (rt *Runtime) Close() {
	rt.cleanupOnce.Do(func() {
		rt.cores.Close()
		rt.mempools.Close()
		if err := rt.eal.Cleanup(); err != nil {
			panic(fmt.Sprintf("runtime: eal cleanup failed: %v", err))
		}
	})
}
