package jobsys

import "sync"

// contextRegistry maps a thread key to the context owned by the
// scheduler goroutine locked to that thread. Scheduler goroutines run
// under runtime.LockOSThread, so the key is stable for a context's
// lifetime and no other goroutine ever executes on its thread.
var contextRegistry sync.Map // threadKey() -> *threadContext

func registerContext(c *threadContext) {
	contextRegistry.Store(threadKey(), c)
}

func unregisterContext() {
	contextRegistry.Delete(threadKey())
}

// currentContext returns the calling thread's context, or nil when the
// caller is not a scheduler thread.
func currentContext() *threadContext {
	v, ok := contextRegistry.Load(threadKey())
	if !ok {
		return nil
	}
	return v.(*threadContext)
}

func mustContext() *threadContext {
	c := currentContext()
	if c == nil {
		panic("jobsys: not a scheduler thread (was Start called, and is this goroutine owned by the scheduler?)")
	}
	return c
}
