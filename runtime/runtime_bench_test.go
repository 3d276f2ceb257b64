// File: runtime/runtime_bench_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Throughput benchmarks for the mempool and timer hot paths, adapted from
// the teacher's b.RunParallel-based allocator/ring benchmarks.

package runtime_test

import (
	"testing"
	"time"

	"github.com/momentics/dpdkrt/dpdk"
	"github.com/momentics/dpdkrt/runtime"
)

// BenchmarkMempoolAllocFree mirrors the teacher's buffer-pool allocation
// benchmark, against a single socket's simulated mempool.
func BenchmarkMempoolAllocFree(b *testing.B) {
	e, err := dpdk.NewEAL(testLog())
	if err != nil {
		b.Fatal(err)
	}
	defer e.Cleanup()

	mp, err := e.CreateMempool("bench-pool", 4096, 64, dpdk.NewSocketId(0))
	if err != nil {
		b.Fatal(err)
	}
	defer mp.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := mp.Alloc()
			if buf != nil {
				mp.Free(buf)
			}
		}
	})
}

// BenchmarkPeriodicTaskThroughput times Execute in timeout mode over a window
// of b.N milliseconds (at least 10ms) while worker core 1's timer services a
// 1ms periodic task. The task's fire count is not reported.
func BenchmarkPeriodicTaskThroughput(b *testing.B) {
	s := baseSettings()
	s.Duration = time.Duration(b.N) * time.Millisecond
	if s.Duration < 10*time.Millisecond {
		s.Duration = 10 * time.Millisecond
	}

	rt, err := runtime.Build(s, testLog())
	if err != nil {
		b.Fatal(err)
	}
	defer rt.Close()

	var fired int
	if err := rt.AddPeriodicTaskToCore(dpdk.NewCoreId(1), func() { fired++ }, time.Millisecond); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	if err := rt.Execute(); err != nil {
		b.Fatal(err)
	}
	b.StopTimer()
}
