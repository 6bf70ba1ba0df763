// Package jobsys is a work-stealing job scheduler for real-time
// applications.
//
// The main (rendering) thread and a pool of worker threads each own a
// work-stealing deque. Work is grouped into hierarchical [Scope] values:
// a scope counts the jobs attributed to it, and [Scope.Dispatch] pumps
// the calling thread's context until that count reaches zero, running
// its own jobs, stealing from other threads, and servicing external and
// background queues along the way. Dispatch is reentrant: a job may
// create child scopes and dispatch them.
//
// Three queue families carry jobs:
//
//   - per-thread work-stealing deques, fed by [Enqueue] and [EnqueueIn];
//   - external MPMC queues targeted at a thread role, fed by
//     [EnqueueOnMain] and [EnqueueOnWorker], for work with thread
//     affinity (command-list submission must happen on the thread that
//     owns the render context);
//   - a background queue, fed by [EnqueueBackground], whose concurrency
//     is capped by a semaphore so throughput-bound work cannot saturate
//     the pool.
//
// The scheduler is process-wide: [Start] binds the calling goroutine as
// the main thread and spawns the workers, [Stop] drains and joins them.
// The calling goroutine is locked to its OS thread for the duration.
package jobsys
