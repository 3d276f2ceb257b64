//go:build !dpdk
// +build !dpdk

// File: dpdk/eal_sim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pure-Go simulation of the EAL, used whenever the "dpdk" build tag is
// absent (the default). Mirrors the lcore-channel dispatch model of
// github.com/yerden/go-dpdk's eal package (see the "dpdk" build: each lcore
// owns a single goroutine pinned to one OS thread, receiving functions to
// run over an unbuffered channel) so the runtime package's logic is
// identical across both backends.

package dpdk

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type simLcore struct {
	id     CoreId
	socket SocketId
	ch     chan func()
	done   chan struct{}
}

type simEAL struct {
	log logrus.FieldLogger

	mu      sync.Mutex
	lcores  map[CoreId]*simLcore
	order   []CoreId
	master  CoreId
	started bool

	live *atomic.Bool
}

func newEALBackend(log logrus.FieldLogger, live *atomic.Bool) EAL {
	return &simEAL{log: log, lcores: make(map[CoreId]*simLcore), live: live}
}

// Init parses a minimal argv understood by RuntimeSettings.ToEalArgs:
// "-l" followed by a comma-separated logical core list, and
// "--master-lcore" followed by the master's id. Unknown flags are ignored,
// mirroring a real EAL's tolerance for driver-specific arguments.
func (e *simEAL) Init(args []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("%w: already initialized", ErrEalInitFailed)
	}

	var cores []CoreId
	master := CoreId(0)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-l":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: -l missing value", ErrEalInitFailed)
			}
			i++
			for _, tok := range strings.Split(args[i], ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				n, err := strconv.Atoi(tok)
				if err != nil || n < 0 {
					return fmt.Errorf("%w: invalid core %q", ErrEalInitFailed, tok)
				}
				cores = append(cores, CoreId(n))
			}
		case "--master-lcore":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: --master-lcore missing value", ErrEalInitFailed)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 0 {
				return fmt.Errorf("%w: invalid master core %q", ErrEalInitFailed, args[i])
			}
			master = CoreId(n)
		}
	}
	if len(cores) == 0 {
		return fmt.Errorf("%w: no logical cores requested", ErrEalInitFailed)
	}

	e.log.WithFields(logrus.Fields{"cores": cores, "master": master}).Info("eal(sim): launching lcores")

	for _, c := range cores {
		lc := &simLcore{
			id:     c,
			socket: simSocketOf(c),
			ch:     make(chan func()),
			done:   make(chan struct{}),
		}
		e.lcores[c] = lc
		e.order = append(e.order, c)
		go lc.run(e.log)
	}
	e.master = master
	e.started = true
	return nil
}

// simSocketOf derives a deterministic, plausible NUMA socket for a
// simulated logical core: two cores per socket, matching common dual-NIC
// desktop topologies used in the test suite.
func simSocketOf(c CoreId) SocketId {
	return SocketId(uint(c) / 2)
}

func (lc *simLcore) run(log logrus.FieldLogger) {
	runtime.LockOSThread()
	pinSimLcore(lc.id)
	defer close(lc.done)
	for fn := range lc.ch {
		lc.invoke(log, fn)
	}
}

func (lc *simLcore) invoke(log logrus.FieldLogger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"lcore": lc.id}).Errorf("eal(sim): panic on lcore: %v", r)
		}
	}()
	fn()
}

func (e *simEAL) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.order {
		close(e.lcores[c].ch)
	}
	for _, c := range e.order {
		<-e.lcores[c].done
	}
	e.lcores = make(map[CoreId]*simLcore)
	e.order = nil
	e.started = false
	e.live.Store(false)
	e.log.Info("eal(sim): cleaned up")
	return nil
}

func (e *simEAL) Lcores() []CoreId {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CoreId, len(e.order))
	copy(out, e.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *simEAL) MasterLcore() CoreId { return e.master }

func (e *simEAL) SocketOf(id CoreId) SocketId {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lc, ok := e.lcores[id]; ok {
		return lc.socket
	}
	return simSocketOf(id)
}

func (e *simEAL) ExecuteOnLcore(id CoreId, fn func()) {
	e.mu.Lock()
	lc, ok := e.lcores[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	lc.ch <- fn
}

func (e *simEAL) CreateMempool(name string, capacity, cacheSize int, socket SocketId) (*Mempool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: non-positive capacity", ErrAllocationFailed)
	}
	return newMempool(name, capacity, cacheSize, socket, newSimMempoolBackend(capacity)), nil
}

const (
	minDescriptors = 64
	maxDescriptors = 4096
)

func (e *simEAL) ConfigurePort(spec PortSpec) (*Port, error) {
	if spec.RxDescriptors < minDescriptors || spec.RxDescriptors > maxDescriptors ||
		spec.TxDescriptors < minDescriptors || spec.TxDescriptors > maxDescriptors {
		return nil, NewPortError(PortErrInvalidDescriptorCount, spec.Name, fmt.Errorf(
			"descriptor counts must be within [%d, %d]", minDescriptors, maxDescriptors))
	}

	known := e.Lcores()
	knownSet := make(map[CoreId]bool, len(known))
	for _, c := range known {
		knownSet[c] = true
	}

	queues := make(map[CoreId]PortQueue, len(spec.Cores))
	for i, c := range spec.Cores {
		if !knownSet[c] {
			return nil, NewPortError(PortErrCoreUnknown, spec.Name, fmt.Errorf("core %v not known to EAL", c))
		}
		if spec.MempoolForCore != nil {
			if _, err := spec.MempoolForCore(c); err != nil {
				return nil, NewPortError(PortErrCoreUnknown, spec.Name, err)
			}
		}
		queues[c] = PortQueue{core: c, queueID: i}
	}

	port := newPort(spec.Name, spec.Device, queues, newSimPortBackend())
	for c, q := range queues {
		q.port = port
		queues[c] = q
	}
	return port, nil
}
