// File: runtime/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error kinds surfaced to embedding programs.

package runtime

import "fmt"

// ErrAllocationFailed is returned by MempoolMap construction when any single
// pool cannot be created. Previously created pools are released first.
var ErrAllocationFailed = fmt.Errorf("runtime: mempool allocation failed")

// ErrSocketNotFound is returned by MempoolMap.Borrow for a socket with no
// configured pool.
var ErrSocketNotFound = fmt.Errorf("runtime: socket not found")

// ErrCoreInitFailed is returned by BuildCoreMap when a worker thread
// fails to bootstrap. Already-initialized workers are torn down first.
var ErrCoreInitFailed = fmt.Errorf("runtime: core init failed")

// ErrSpawnFailed is returned when an executor refuses to accept a task
// because it has already shut down.
var ErrSpawnFailed = fmt.Errorf("runtime: executor refused task (dead)")

// CoreErrorKind enumerates why an install-on-core operation was rejected.
type CoreErrorKind int

const (
	CoreErrUnknown CoreErrorKind = iota
	// CoreErrNotFound: the referenced core is not a registered worker.
	CoreErrNotFound
	// CoreErrNotAssigned: the core is a worker but holds no port queues.
	CoreErrNotAssigned
)

// CoreError is returned by install operations that target a specific core.
type CoreError struct {
	Kind CoreErrorKind
	Core CoreId
}

func (e *CoreError) Error() string {
	switch e.Kind {
	case CoreErrNotFound:
		return fmt.Sprintf("runtime: core %v is not a registered worker", e.Core)
	case CoreErrNotAssigned:
		return fmt.Sprintf("runtime: core %v has no port queues assigned", e.Core)
	default:
		return fmt.Sprintf("runtime: core %v error", e.Core)
	}
}

func newCoreNotFoundError(c CoreId) *CoreError    { return &CoreError{Kind: CoreErrNotFound, Core: c} }
func newCoreNotAssignedError(c CoreId) *CoreError { return &CoreError{Kind: CoreErrNotAssigned, Core: c} }

// ErrPortNotFound is returned by AddPipelineToPort for an unregistered
// port name.
var ErrPortNotFound = fmt.Errorf("runtime: port not found")

// ErrDuplicatePort is returned at Runtime assembly time when two port
// configurations share a name.
var ErrDuplicatePort = fmt.Errorf("runtime: duplicate port name")
