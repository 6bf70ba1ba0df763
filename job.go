package jobsys

import (
	"unsafe"

	"github.com/gogpu/jobsys/internal/mpmc"
)

// Job is one unit of work: a closure plus the scope it is attributed to.
// Jobs travel by value through the scheduler's queues; the closure is
// invoked exactly once, and the owning scope's pending count is
// decremented immediately after it returns.
type Job struct {
	fn    func()
	scope *Scope
}

// InlineJobSize is the size of a queued job in bytes. It is part of the
// API contract: jobs are stored inline in the scheduler's queues, never
// boxed, so captures travel through the closure the job wraps rather
// than through the job itself.
const InlineJobSize = unsafe.Sizeof(Job{})

func (j *Job) run() {
	j.fn()
	j.scope.pending.Add(-1)
}

// Enqueue attributes fn to the calling thread's active scope and pushes
// it onto the calling thread's own deque. This is the cheapest enqueue
// path ("spawn"). Must be called from a scheduler thread.
func Enqueue(fn func()) {
	c := mustContext()
	j := Job{fn: fn, scope: c.activeScope}
	j.scope.pending.Add(1)
	c.deque.Push(j)
}

// EnqueueIn attributes fn to the supplied scope and pushes it onto the
// calling thread's own deque. The scope may live on another thread; its
// Dispatch observes the completion. Must be called from a scheduler
// thread.
func EnqueueIn(s *Scope, fn func()) {
	c := mustContext()
	s.pending.Add(1)
	c.deque.Push(Job{fn: fn, scope: s})
}

// EnqueueOnMain queues fn for the main thread, attributed to the root
// scope. The job runs only during a main-thread dispatch. Callable from
// any goroutine.
func EnqueueOnMain(fn func()) {
	enqueueExternal(mainExternal, &rootScope, fn)
}

// EnqueueOnMainIn is EnqueueOnMain with an explicit scope. The scope is
// captured by the job, so an asynchronous chain handed across threads
// reliably signals it.
func EnqueueOnMainIn(s *Scope, fn func()) {
	enqueueExternal(mainExternal, s, fn)
}

// EnqueueOnWorker queues fn for any worker thread, attributed to the
// root scope. Callable from any goroutine.
func EnqueueOnWorker(fn func()) {
	enqueueExternal(workerExternal, &rootScope, fn)
}

// EnqueueOnWorkerIn is EnqueueOnWorker with an explicit scope.
func EnqueueOnWorkerIn(s *Scope, fn func()) {
	enqueueExternal(workerExternal, s, fn)
}

// EnqueueBackground queues fn on the background queue, attributed to the
// root scope. Background jobs run on scheduler threads but their
// concurrency is capped by the background semaphore; use this for
// throughput-bound work that must not saturate the pool. Callable from
// any goroutine.
func EnqueueBackground(fn func()) {
	rootScope.pending.Add(1)
	bgQueue.Push(Job{fn: fn, scope: &rootScope})
}

// External and background enqueues account the scope at push time; the
// invocation decrements exactly once.
func enqueueExternal(q *mpmc.Queue[Job], s *Scope, fn func()) {
	s.pending.Add(1)
	q.Push(Job{fn: fn, scope: s})
}
