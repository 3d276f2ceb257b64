// File: dpdk/eal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EAL abstracts the poll-mode-driver Environment Abstraction Layer: process
// init/cleanup, logical-core enumeration with per-core socket ids, and the
// EAL's inverted thread-launch model (the EAL owns lcore threads; callers
// post functions onto them, they never spawn threads themselves).
//
// Exactly one EAL may be live per process; NewEAL enforces this with a
// process-wide flag, since a second EAL init would contend with the first
// for hugepages and PCI device ownership.

package dpdk

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// EAL is the runtime's sole collaborator boundary onto the underlying
// poll-mode-driver toolkit.
type EAL interface {
	// Init initializes the EAL with the given argv-style arguments.
	Init(args []string) error

	// Cleanup releases all EAL-owned resources. Called exactly once: from
	// Runtime.Close, or from Runtime.Build when a step after a successful
	// Init fails; never from Init's own error path.
	Cleanup() error

	// Lcores returns every logical core the EAL launched, in ascending
	// order, including the master lcore.
	Lcores() []CoreId

	// MasterLcore returns the lcore the EAL designated as master.
	MasterLcore() CoreId

	// SocketOf returns the NUMA socket backing a given lcore.
	SocketOf(id CoreId) SocketId

	// ExecuteOnLcore posts fn to run on the lcore's own EAL-owned thread.
	// fn runs exactly once, asynchronously; the caller does not wait for fn
	// to finish, but may wait until the lcore is free to accept it.
	// Posting to an lcore the EAL never launched is a no-op.
	ExecuteOnLcore(id CoreId, fn func())

	// CreateMempool allocates a packet-buffer pool on the given socket.
	CreateMempool(name string, capacity, cacheSize int, socket SocketId) (*Mempool, error)

	// ConfigurePort builds a stopped port with one queue per assigned core.
	ConfigurePort(spec PortSpec) (*Port, error)
}

var ealLive atomic.Bool

// ErrEalAlreadyLive is returned by NewEAL when a live EAL already exists in
// this process.
var ErrEalAlreadyLive = wrapEal("eal already initialized in this process")

func wrapEal(msg string) error { return &ealErr{msg} }

type ealErr struct{ msg string }

func (e *ealErr) Error() string { return "dpdk: " + e.msg }

// NewEAL constructs the platform-appropriate EAL backend (real DPDK binding
// under the "dpdk" build tag, pure-Go simulation otherwise) and marks it as
// the process-wide singleton. Callers must call Cleanup exactly once to
// release the slot.
func NewEAL(log logrus.FieldLogger) (EAL, error) {
	if !ealLive.CompareAndSwap(false, true) {
		return nil, ErrEalAlreadyLive
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return newEALBackend(log, &ealLive), nil
}
