// File: dpdk/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Port is a named NIC handle with one rx/tx queue pair per assigned core.
// Lifecycle is Configured -> Started -> Stopped.

package dpdk

import (
	"fmt"
	"sync"
)

// PortState enumerates a port's lifecycle stage.
type PortState int

const (
	PortConfigured PortState = iota
	PortStarted
	PortStopped
)

func (s PortState) String() string {
	switch s {
	case PortConfigured:
		return "configured"
	case PortStarted:
		return "started"
	case PortStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PortSpec describes a requested port configuration, handed to
// EAL.ConfigurePort.
type PortSpec struct {
	Name           string
	Device         string
	Cores          []CoreId
	RxDescriptors  int
	TxDescriptors  int
	SocketOf       func(CoreId) SocketId
	MempoolForCore func(CoreId) (*Mempool, error)
}

// PortQueue is an opaque rx/tx queue pair handle: trivially copyable,
// movable across goroutines, owned by exactly one core for its lifetime.
// It does not own its Port or Mempool; its lifetime is bounded by the
// owning Port's.
type PortQueue struct {
	core    CoreId
	port    *Port
	queueID int
}

// Core returns the core this queue is bound to.
func (q PortQueue) Core() CoreId { return q.core }

// PortName returns the name of the owning port.
func (q PortQueue) PortName() string { return q.port.Name() }

// portBackend is implemented once per EAL backend.
type portBackend interface {
	start() error
	stop()
}

// Port is a configured NIC with a name, device string, and per-core queues.
type Port struct {
	name   string
	device string
	queues map[CoreId]PortQueue

	mu      sync.Mutex
	state   PortState
	backend portBackend
}

func newPort(name, device string, queues map[CoreId]PortQueue, backend portBackend) *Port {
	return &Port{
		name:    name,
		device:  device,
		queues:  queues,
		state:   PortConfigured,
		backend: backend,
	}
}

// Name returns the port's logical, runtime-unique name.
func (p *Port) Name() string { return p.name }

// Device returns the underlying driver-level device string.
func (p *Port) Device() string { return p.device }

// Queues returns the core -> queue mapping populated at build time.
func (p *Port) Queues() map[CoreId]PortQueue { return p.queues }

// State returns the port's current lifecycle stage.
func (p *Port) State() PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start transitions Configured -> Started. Starting from any other state is
// a programmer error and panics.
func (p *Port) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PortConfigured {
		panic(fmt.Sprintf("dpdk: port %q: start called from state %s, expected configured", p.name, p.state))
	}
	if err := p.backend.start(); err != nil {
		return NewPortError(PortErrStartFailed, p.name, err)
	}
	p.state = PortStarted
	return nil
}

// Stop transitions to Stopped. Idempotent: stopping an already-stopped port
// is a no-op. A port that was never started is stopped and moved straight to
// Stopped.
func (p *Port) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PortStopped {
		return
	}
	p.backend.stop()
	p.state = PortStopped
}
