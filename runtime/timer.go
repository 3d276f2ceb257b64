// File: runtime/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-core heap-based timer driver. Adapted from the concurrency package's
// scheduler: same container/heap-over-deadline design,
// but with the prefetch hook dropped and the pop/reschedule cycle completed.
// Periodic entries are rescheduled from their own last deadline, not from
// the observed poll time, so the period is measured between successive
// invocations rather than drifting with however long Poll was delayed.

package runtime

import (
	"container/heap"
	"sync"
	"time"
)

type timerEntry struct {
	deadline time.Time
	period   time.Duration // zero means one-shot
	task     func()
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Timer is a single core's timer driver: one-shot delays for master wait
// semantics, periodic entries for installed periodic tasks.
type Timer struct {
	mu sync.Mutex
	h  timerHeap
}

func newTimer() *Timer { return &Timer{} }

// scheduleOnce arranges for task to run once, no sooner than delay from now.
func (t *Timer) scheduleOnce(delay time.Duration, task func()) *timerEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &timerEntry{deadline: time.Now().Add(delay), task: task}
	heap.Push(&t.h, e)
	return e
}

// schedulePeriodic arranges for task to run every period, starting after the
// first period elapses.
func (t *Timer) schedulePeriodic(period time.Duration, task func()) *timerEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &timerEntry{deadline: time.Now().Add(period), period: period, task: task}
	heap.Push(&t.h, e)
	return e
}

// cancel marks an entry so it is dropped the next time it would fire,
// whether still queued or already popped and about to be rescheduled.
func (t *Timer) cancel(e *timerEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.canceled = true
}

// poll runs every entry whose deadline has passed as of now, and reschedules
// periodic entries from their own prior deadline. Tasks run without the
// heap lock held, so a task may itself schedule new timer entries.
func (t *Timer) poll(now time.Time) {
	t.mu.Lock()
	var due []*timerEntry
	for t.h.Len() > 0 && !t.h[0].deadline.After(now) {
		e := heap.Pop(&t.h).(*timerEntry)
		if !e.canceled {
			due = append(due, e)
		}
	}
	t.mu.Unlock()

	for _, e := range due {
		last := e.deadline
		e.task()
		if e.period > 0 && !e.canceled {
			e.deadline = last.Add(e.period)
			t.mu.Lock()
			heap.Push(&t.h, e)
			t.mu.Unlock()
		}
	}
}
