//go:build !dpdk
// +build !dpdk

// File: dpdk/port_sim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

// simPortBackend is a no-op port backend: starting and stopping a simulated
// port has no hardware side effect, only the state transition that Port
// itself already enforces.
type simPortBackend struct{}

func newSimPortBackend() *simPortBackend { return &simPortBackend{} }

func (p *simPortBackend) start() error { return nil }

func (p *simPortBackend) stop() {}
