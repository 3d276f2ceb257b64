//go:build !dpdk && !linux
// +build !dpdk,!linux

// File: dpdk/pin_sim_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

// pinSimLcore is a no-op on platforms without a cheap affinity syscall
// binding in this module; the simulation remains correct, only without
// physical core pinning.
func pinSimLcore(id CoreId) {}
