//go:build dpdk
// +build dpdk

// File: dpdk/eal_dpdk.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Real EAL binding against github.com/yerden/go-dpdk/eal. Requires a DPDK
// toolchain, hugepages, and a bound poll-mode driver on the host; build with
// -tags dpdk only in such an environment.

package dpdk

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yerden/go-dpdk/eal"

	"github.com/yerden/go-dpdk/ethdev"
	"github.com/yerden/go-dpdk/mempool"
)

type realEAL struct {
	log  logrus.FieldLogger
	live *atomic.Bool
}

func newEALBackend(log logrus.FieldLogger, live *atomic.Bool) EAL {
	return &realEAL{log: log, live: live}
}

func (e *realEAL) Init(args []string) error {
	if err := eal.InitWithArgs(args); err != nil {
		return fmt.Errorf("%w: %v", ErrEalInitFailed, err)
	}
	e.log.WithField("args", args).Info("eal: initialized")
	return nil
}

func (e *realEAL) Cleanup() error {
	err := eal.Cleanup()
	e.live.Store(false)
	if err != nil {
		return fmt.Errorf("dpdk: eal cleanup: %w", err)
	}
	return nil
}

func (e *realEAL) Lcores() []CoreId {
	raw := eal.Lcores(false)
	out := make([]CoreId, len(raw))
	for i, id := range raw {
		out[i] = NewCoreId(id)
	}
	return out
}

func (e *realEAL) MasterLcore() CoreId {
	return NewCoreId(eal.GetMasterLcore())
}

func (e *realEAL) SocketOf(id CoreId) SocketId {
	return NewSocketId(eal.LcoreToSocket(id.Raw()))
}

func (e *realEAL) ExecuteOnLcore(id CoreId, fn func()) {
	eal.ExecuteOnLcore(id.Raw(), func(*eal.Lcore) { fn() })
}

func (e *realEAL) CreateMempool(name string, capacity, cacheSize int, socket SocketId) (*Mempool, error) {
	mp, err := mempool.CreateMbufPool(name, uint32(capacity), uint32(cacheSize),
		mempool.OptSocket(int(socket.Raw())))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	return newMempool(name, capacity, cacheSize, socket, newDpdkMempoolBackend(mp)), nil
}

func (e *realEAL) ConfigurePort(spec PortSpec) (*Port, error) {
	dev, err := ethdev.NewByName(spec.Device)
	if err != nil {
		return nil, NewPortError(PortErrNotFound, spec.Name, err)
	}

	nQueues := uint16(len(spec.Cores))
	if nQueues == 0 {
		return nil, NewPortError(PortErrCoreUnknown, spec.Name, fmt.Errorf("no cores assigned"))
	}
	if spec.RxDescriptors < minDescriptors || spec.RxDescriptors > maxDescriptors ||
		spec.TxDescriptors < minDescriptors || spec.TxDescriptors > maxDescriptors {
		return nil, NewPortError(PortErrInvalidDescriptorCount, spec.Name, fmt.Errorf(
			"descriptor counts must be within [%d, %d]", minDescriptors, maxDescriptors))
	}

	if err := dev.Configure(nQueues, nQueues, ethdev.NewConf()); err != nil {
		return nil, NewPortError(PortErrStartFailed, spec.Name, err)
	}

	queues := make(map[CoreId]PortQueue, len(spec.Cores))
	for i, c := range spec.Cores {
		if spec.MempoolForCore == nil {
			return nil, NewPortError(PortErrCoreUnknown, spec.Name, fmt.Errorf("no mempool resolver configured"))
		}
		mp, err := spec.MempoolForCore(c)
		if err != nil {
			return nil, NewPortError(PortErrCoreUnknown, spec.Name, err)
		}
		qid := uint16(i)
		socket := NewSocketId(eal.LcoreToSocket(c.Raw()))
		if err := dev.RxqSetup(qid, uint16(spec.RxDescriptors), int(socket.Raw()), nil, mp.backend.(*dpdkMempoolBackend).mp); err != nil {
			return nil, NewPortError(PortErrStartFailed, spec.Name, err)
		}
		if err := dev.TxqSetup(qid, uint16(spec.TxDescriptors), int(socket.Raw()), nil); err != nil {
			return nil, NewPortError(PortErrStartFailed, spec.Name, err)
		}
		queues[c] = PortQueue{core: c, queueID: i}
	}

	port := newPort(spec.Name, spec.Device, queues, newDpdkPortBackend(dev))
	for c, q := range queues {
		q.port = port
		queues[c] = q
	}
	return port, nil
}
