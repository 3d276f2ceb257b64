//go:build dpdk
// +build dpdk

// File: dpdk/port_dpdk.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

import "github.com/yerden/go-dpdk/ethdev"

type dpdkPortBackend struct {
	dev *ethdev.Dev
}

func newDpdkPortBackend(dev *ethdev.Dev) *dpdkPortBackend {
	return &dpdkPortBackend{dev: dev}
}

func (b *dpdkPortBackend) start() error {
	return b.dev.Start()
}

func (b *dpdkPortBackend) stop() {
	b.dev.Stop()
}
