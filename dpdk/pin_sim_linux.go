//go:build !dpdk && linux
// +build !dpdk,linux

// File: dpdk/pin_sim_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

import "golang.org/x/sys/unix"

// pinSimLcore pins the calling OS thread to the simulated lcore's CPU,
// best-effort: a failure here does not abort the lcore, it only means the
// simulation loses some affinity fidelity.
func pinSimLcore(id CoreId) {
	var set unix.CPUSet
	set.Zero()
	set.Set(int(id.Raw()) % numCPU())
	_ = unix.SchedSetaffinity(0, &set)
}

func numCPU() int {
	n, err := unix.SchedGetaffinity(0, &unix.CPUSet{})
	if err != nil {
		return 1
	}
	return n.Count()
}
