package jobsys

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gogpu/jobsys/internal/mpmc"
	"github.com/gogpu/jobsys/internal/wsq"
)

type role int

const (
	roleMain role = iota
	roleWorker
)

// Backoff tiers for a worker that keeps finding nothing to run: spin for
// a while, then yield the OS scheduler, then sleep. The sleep is short
// enough to stay responsive while mostly eliminating CPU use.
const (
	spinIterations  = 1_000
	yieldIterations = 10_000
	idleSleep       = 4 * time.Millisecond
)

// WorkerStats is one thread's dispatch counters, recorded when the
// thread finishes.
type WorkerStats struct {
	Name        string
	RunOwn      int // jobs popped from the thread's own deque
	StealMain   int // jobs stolen from the main thread's deque
	StealWorker int // jobs stolen from other workers' deques
	External    int // jobs taken from the thread's external queue
	Background  int // background jobs run under quota
	Spins       int
	Yields      int
	Sleeps      int
}

// threadContext is the per-thread scheduler state. Exactly one goroutine
// owns a context; that goroutine is locked to its OS thread for the
// context's lifetime.
type threadContext struct {
	name        string
	role        role
	deque       *wsq.Deque[Job]
	external    *mpmc.Queue[Job]
	activeScope *Scope
	threadScope *Scope
	stealStart  int // worker index where the next steal probe begins
	bgQuotaUsed int64
	stats       WorkerStats
}

func newThreadContext(name string, r role, deque *wsq.Deque[Job], external *mpmc.Queue[Job]) *threadContext {
	c := &threadContext{name: name, role: r, deque: deque, external: external}
	c.stats.Name = name
	return c
}

// dispatchOne probes the work sources in fixed order and runs at most
// one job. The order is part of the scheduler's contract:
//
//  1. the thread's own deque (LIFO);
//  2. the main thread's deque (workers only);
//  3. every other worker's deque, starting at the rolling index — a
//     productive victim is probed first next time;
//  4. the external queue for this thread's role;
//  5. the background queue, gated by the concurrency semaphore.
//
// Reports whether a job ran.
func (c *threadContext) dispatchOne() bool {
	if j, ok := c.deque.Pop(); ok {
		c.stats.RunOwn++
		j.run()
		return true
	}

	if c.role != roleMain {
		if j, ok := mainDeque.Steal(); ok {
			c.stats.StealMain++
			j.run()
			return true
		}
	}

	for i := 0; i < len(workerDeques); i++ {
		idx := (c.stealStart + i) % len(workerDeques)
		q := workerDeques[idx]
		if q == c.deque {
			continue
		}
		if j, ok := q.Steal(); ok {
			c.stats.StealWorker++
			c.stealStart = idx
			j.run()
			return true
		}
	}

	if j, ok := c.external.TryPop(); ok {
		c.stats.External++
		j.run()
		return true
	}

	// Background gate: take a semaphore slot, run one background job if
	// there is one, give the slot back. A failed take (semaphore went
	// negative) or an empty queue restores the slot immediately.
	if bgSemaphore.Add(-1) >= 0 {
		if j, ok := bgQueue.TryPop(); ok {
			c.bgQuotaUsed++
			c.stats.Background++
			j.run()
			c.bgQuotaUsed--
			bgSemaphore.Add(1)
			return true
		}
	}
	bgSemaphore.Add(1)
	return false
}

// runWorker is a worker thread's main loop: drain everything reachable,
// then back off progressively until the stop flag rises. Runs locked to
// an OS thread so thread-affine callers (render contexts, TLS-keyed
// lookup) see a stable thread.
func runWorker(index int) {
	defer workerWG.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c := newThreadContext(workerName(index), roleWorker, workerDeques[index], workerExternal)
	c.stealStart = (index + 1) % len(workerDeques)
	registerContext(c)
	c.threadScope = newThreadScope(c)
	Logger().Debug("worker started", "worker", c.name)

	jobless := 0
	for !workersShouldStop.Load() {
		for c.dispatchOne() {
			jobless = 0
		}

		jobless++
		switch {
		case jobless < spinIterations:
			c.stats.Spins++
		case jobless < yieldIterations:
			c.stats.Yields++
			runtime.Gosched()
		default:
			c.stats.Sleeps++
			time.Sleep(idleSleep)
		}
	}

	c.finish()
	Logger().Debug("worker stopped", "worker", c.name)
}

// finish drains the thread scope (jobs still charged to this thread),
// tears down the context, and records its stats.
func (c *threadContext) finish() {
	c.threadScope.Close()
	c.threadScope = nil
	c.activeScope = nil
	unregisterContext()
	recordStats(c.stats)
}

func workerName(index int) string {
	return fmt.Sprintf("worker%d", index)
}
