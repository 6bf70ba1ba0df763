package jobsys

import (
	"runtime"
	"sync/atomic"
)

// Scope is a hierarchical pending-work counter: the basic unit of "wait
// for this group of work to finish".
//
// A scope captures the thread context it was created on and may only be
// dispatched there. Its parent link is non-owning; liveness follows from
// the convention that a scope's lifetime strictly contains the lifetimes
// of its children and of every job attributed to it.
//
// Close must be called on the creating thread when the scope's work is
// delimited (defer is the usual form). Close dispatches, restores the
// thread's active scope, and releases the parent's pending count.
type Scope struct {
	ctx        *threadContext
	prevActive *Scope
	parent     *Scope
	pending    atomic.Int64
	closed     bool
}

// rootScope parents background jobs and the per-thread scopes: work that
// cannot be attributed to any stack-bound scope. Its counter must read
// zero at Stop.
var rootScope Scope

// NewScope creates a scope nested in the calling thread's active scope
// and installs itself as the new active scope. Must be called from a
// scheduler thread.
func NewScope() *Scope {
	c := mustContext()
	return newScopeOn(c, c.activeScope)
}

// NewScopeIn creates a scope with an explicit parent, which may live on
// a different thread. The previously active scope on the calling thread
// is still the one restored at Close; parent and thread binding are
// independent. Must be called from a scheduler thread.
func NewScopeIn(parent *Scope) *Scope {
	return newScopeOn(mustContext(), parent)
}

func newScopeOn(c *threadContext, parent *Scope) *Scope {
	s := &Scope{
		ctx:        c,
		prevActive: c.activeScope,
		parent:     parent,
	}
	c.activeScope = s
	parent.pending.Add(1)
	return s
}

// newThreadScope creates the implicit per-thread scope installed at
// context start and dispatched at context finish. Parented to the root
// scope; there is no previous active scope to restore.
func newThreadScope(c *threadContext) *Scope {
	s := &Scope{ctx: c, parent: &rootScope}
	c.activeScope = s
	rootScope.pending.Add(1)
	return s
}

// AddPending adjusts the pending count directly. This is the hook used
// by external completion sources (the asset loader registers a waiting
// scope with +1 and signals it with -1 when the load lands).
func (s *Scope) AddPending(delta int) {
	s.pending.Add(int64(delta))
}

// Pending returns the current pending count. Racy by nature; meaningful
// only for diagnostics.
func (s *Scope) Pending() int {
	return int(s.pending.Load())
}

// Dispatch pumps the scope's thread context until the pending count
// reaches zero. It runs jobs from the thread's own deque, steals from
// other threads, and services the external and background queues, so a
// dispatching thread is a full scheduler participant, not a spinner.
//
// Must be called on the thread the scope was created on.
//
// While dispatching, any background quota the thread holds is returned
// to the semaphore and re-taken afterward. A dispatch-blocked thread
// keeping its quota could starve a descendant background job that the
// dispatch itself is waiting on; the transient over-subscription this
// allows is accepted.
func (s *Scope) Dispatch() {
	c := s.ctx
	if c == nil {
		panic("jobsys: dispatch on the root scope")
	}
	if currentContext() != c {
		panic("jobsys: scope dispatched off its thread")
	}

	held := c.bgQuotaUsed
	if held > 0 {
		bgSemaphore.Add(held)
	}
	for s.pending.Load() > 0 {
		if !c.dispatchOne() {
			runtime.Gosched()
		}
	}
	if held > 0 {
		bgSemaphore.Add(-held)
	}

	// The main thread additionally drains its external queue once the
	// scope is satisfied. Jobs unrelated to this scope ride along; users
	// of EnqueueOnMain get no latency bound beyond "the next main-thread
	// dispatch".
	if c.role == roleMain {
		for {
			j, ok := mainExternal.TryPop()
			if !ok {
				break
			}
			j.run()
		}
	}
}

// Close dispatches the scope, restores the thread's active scope, and
// decrements the parent's pending count. Idempotent. Must be called on
// the scope's thread.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.Dispatch()
	s.ctx.activeScope = s.prevActive
	if s.parent != nil {
		s.parent.pending.Add(-1)
	}
}

// ActiveScope returns the calling scheduler thread's active scope, or
// nil when called from a goroutine the scheduler does not own (reader
// threads, arbitrary goroutines).
func ActiveScope() *Scope {
	c := currentContext()
	if c == nil {
		return nil
	}
	return c.activeScope
}
