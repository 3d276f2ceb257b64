// File: runtime/coremap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CoreMap launches one cooperative executor per worker core plus the master
// executor. Each worker's run loop is locked to the OS thread the EAL
// handed it: the lcore thread never returns to the EAL's dispatch loop
// until the worker shuts down (the closure posted via
// dpdk.EAL.ExecuteOnLcore simply never returns early).
//
// The installer/task two-stage split is realized as two independently-gated
// queues on the same CoreExecutor: a bootstrapQueue of one-shot installer
// jobs, drained continuously from the moment the core reports ready (so the
// installer itself may run while the core is still parked, matching
// current_thread::spawn semantics), and a tasks slice of repeatedly-polled
// pipeline bodies, which the run loop only invokes after Unpark.

package runtime

import (
	stdruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/sirupsen/logrus"
)

// CoreExecutor is the run loop installed on a single worker core.
type CoreExecutor struct {
	core   CoreId
	socket SocketId
	log    logrus.FieldLogger

	bootstrap *bootstrapQueue
	timer     *Timer

	tasksMu sync.Mutex
	tasks   []func()

	queuesMu sync.Mutex
	queues   map[string]dpdk.PortQueue // port name -> this core's queue

	unparkCh   chan struct{}
	shutdownCh chan struct{}
	doneCh     chan struct{}
	closed     atomic.Bool
}

func newCoreExecutor(core CoreId, socket SocketId, log logrus.FieldLogger) *CoreExecutor {
	return &CoreExecutor{
		core:       core,
		socket:     socket,
		log:        log,
		bootstrap:  newBootstrapQueue(),
		timer:      newTimer(),
		queues:     make(map[string]dpdk.PortQueue),
		unparkCh:   make(chan struct{}),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// registerQueue binds a port's queue on this core, consumed by
// AddPipelineToCore's port-queue mapping.
func (ce *CoreExecutor) registerQueue(portName string, q dpdk.PortQueue) {
	ce.queuesMu.Lock()
	defer ce.queuesMu.Unlock()
	ce.queues[portName] = q
}

func (ce *CoreExecutor) queueSnapshot() map[string]dpdk.PortQueue {
	ce.queuesMu.Lock()
	defer ce.queuesMu.Unlock()
	out := make(map[string]dpdk.PortQueue, len(ce.queues))
	for k, v := range ce.queues {
		out[k] = v
	}
	return out
}

func (ce *CoreExecutor) installTask(fn func()) {
	ce.tasksMu.Lock()
	ce.tasks = append(ce.tasks, fn)
	ce.tasksMu.Unlock()
}

func (ce *CoreExecutor) snapshotTasks() []func() {
	ce.tasksMu.Lock()
	defer ce.tasksMu.Unlock()
	out := make([]func(), len(ce.tasks))
	copy(out, ce.tasks)
	return out
}

func (ce *CoreExecutor) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ce.log.WithField("core", ce.core).Errorf("runtime: recovered panic in core task: %v", r)
		}
	}()
	fn()
}

// run is the function posted to the EAL for this core. It takes over the
// lcore thread for the worker's entire lifetime. readyCh is a one-shot
// rendezvous: run sends this executor's WorkerExecutor handle, then
// proceeds to the parked phase.
func (ce *CoreExecutor) run(readyCh chan<- *WorkerExecutor) {
	stdruntime.LockOSThread()
	defer func() {
		ce.closed.Store(true)
		ce.bootstrap.markClosed()
		close(ce.doneCh)
	}()

	we := &WorkerExecutor{core: ce.core, socket: ce.socket, ce: ce}
	readyCh <- we

	// Parked phase: drain installer/bootstrap jobs as they arrive, but never
	// touch the pipeline task list until Unpark releases this core.
parked:
	for {
		select {
		case <-ce.shutdownCh:
			return
		case <-ce.unparkCh:
			break parked
		case <-ce.bootstrap.notify:
			for _, fn := range ce.bootstrap.drain() {
				ce.safeRun(fn)
			}
		}
	}

	// Running phase: a run-to-completion poll loop. Each turn drains any
	// newly installed bootstrap jobs, fires due timer entries, and polls
	// every installed pipeline task exactly once.
	for {
		select {
		case <-ce.shutdownCh:
			return
		default:
		}

		for _, fn := range ce.bootstrap.drain() {
			ce.safeRun(fn)
		}

		ce.timer.poll(time.Now())

		for _, task := range ce.snapshotTasks() {
			ce.safeRun(task)
		}

		stdruntime.Gosched()
	}
}

// WorkerExecutor is the per-core record handed back to the builder:
// a spawn handle, an unpark token, a shutdown trigger, and (via Join) a
// join handle. Unpark/Shutdown/Join are each move-once via sync.Once.
type WorkerExecutor struct {
	core   CoreId
	socket SocketId
	ce     *CoreExecutor

	unparkOnce   sync.Once
	shutdownOnce sync.Once
	joinOnce     sync.Once
}

// Core returns the worker's core id.
func (w *WorkerExecutor) Core() CoreId { return w.core }

// Socket returns the NUMA socket this worker's core belongs to.
func (w *WorkerExecutor) Socket() SocketId { return w.socket }

// registerQueue binds a port's queue on this executor's core, used only
// during Runtime.Build's port-construction step.
func (w *WorkerExecutor) registerQueue(portName string, q dpdk.PortQueue) {
	w.ce.registerQueue(portName, q)
}

// Spawn posts a one-shot bootstrap job (an installer, or a periodic-task
// registration) onto this core. Returns ErrSpawnFailed if the executor has
// already shut down.
func (w *WorkerExecutor) Spawn(job func()) error {
	return w.ce.bootstrap.push(job)
}

// InstallTask registers fn to be polled once per run-loop iteration. Only
// meant to be called from within a bootstrap job running on this core.
func (w *WorkerExecutor) InstallTask(fn func()) {
	w.ce.installTask(fn)
}

// Timer returns this core's own timer driver, used by periodic task install.
func (w *WorkerExecutor) Timer() *Timer { return w.ce.timer }

// Queues returns a snapshot of this core's port-name -> queue mapping.
func (w *WorkerExecutor) Queues() map[string]dpdk.PortQueue { return w.ce.queueSnapshot() }

// Unpark releases the executor from its initial parked state. Idempotent.
func (w *WorkerExecutor) Unpark() {
	w.unparkOnce.Do(func() { close(w.ce.unparkCh) })
}

// Shutdown requests termination of the run loop. Idempotent.
func (w *WorkerExecutor) Shutdown() {
	w.shutdownOnce.Do(func() { close(w.ce.shutdownCh) })
}

// Join blocks until the worker's run loop has returned. Idempotent: a
// second call returns immediately.
func (w *WorkerExecutor) Join() {
	w.joinOnce.Do(func() { <-w.ce.doneCh })
}

// MasterExecutor is the per-process record for the master core: a reactor
// for signal delivery and a timer driver. It never runs worker pipelines.
type MasterExecutor struct {
	core    CoreId
	socket  SocketId
	timer   *Timer
	reactor signalReactor
}

// Core returns the master's core id.
func (m *MasterExecutor) Core() CoreId { return m.core }

// Timer returns the master's timer driver, used for the one-shot timeout in
// Execute's timeout-mode wait.
func (m *MasterExecutor) Timer() *Timer { return m.timer }

// CoreMap maps CoreId -> WorkerExecutor plus the singleton master. The
// configured master core is never present in the worker map.
type CoreMap struct {
	master  *MasterExecutor
	workers map[CoreId]*WorkerExecutor
}

// Master returns the process's master executor.
func (cm *CoreMap) Master() *MasterExecutor { return cm.master }

// Worker returns the WorkerExecutor for core, or nil and false if core is
// not a registered worker.
func (cm *CoreMap) Worker(core CoreId) (*WorkerExecutor, bool) {
	w, ok := cm.workers[core]
	return w, ok
}

// Workers returns every registered worker core id.
func (cm *CoreMap) Workers() []CoreId {
	out := make([]CoreId, 0, len(cm.workers))
	for c := range cm.workers {
		out = append(out, c)
	}
	return out
}

// BuildCoreMap launches one worker executor per core in workerCores, plus a
// master executor on masterCore. Build is synchronous: it returns only
// after every worker has reported readiness. On any single worker's
// failure to initialize, every already-created worker is shut down and
// joined before returning ErrCoreInitFailed.
func BuildCoreMap(eal dpdk.EAL, masterCore CoreId, workerCores []CoreId, log logrus.FieldLogger) (*CoreMap, error) {
	cm := &CoreMap{workers: make(map[CoreId]*WorkerExecutor, len(workerCores))}

	teardown := func() {
		for _, w := range cm.workers {
			w.Shutdown()
			w.Join()
		}
	}

	for _, core := range workerCores {
		socket := eal.SocketOf(core)
		ce := newCoreExecutor(core, socket, log)

		readyCh := make(chan *WorkerExecutor, 1)
		eal.ExecuteOnLcore(core, func() { ce.run(readyCh) })

		select {
		case we := <-readyCh:
			cm.workers[core] = we
		case <-time.After(coreReadyTimeout):
			teardown()
			return nil, ErrCoreInitFailed
		}
	}

	masterSocket := eal.SocketOf(masterCore)
	reactor, err := newSignalReactor()
	if err != nil {
		teardown()
		return nil, ErrCoreInitFailed
	}
	cm.master = &MasterExecutor{
		core:    masterCore,
		socket:  masterSocket,
		timer:   newTimer(),
		reactor: reactor,
	}

	return cm, nil
}

// Close tears down every worker and the master reactor. Called from
// Runtime.Close and from Runtime.Build's failure path (teardownPartial).
func (cm *CoreMap) Close() {
	for _, w := range cm.workers {
		w.Shutdown()
		w.Join()
	}
	if cm.master != nil && cm.master.reactor != nil {
		cm.master.reactor.Close()
	}
}

const coreReadyTimeout = 5 * time.Second
