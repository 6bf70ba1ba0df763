package jobsys

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/jobsys/internal/mpmc"
	"github.com/gogpu/jobsys/internal/wsq"
)

// Scheduler-wide constants. ExternalQueueCapacity bounds the external
// and background queues; overflow is a programmer error and panics.
const (
	DefaultBackgroundConcurrency = 2
	ExternalQueueCapacity        = 16_384

	dequeInitialCapacity = 256
)

var (
	running           atomic.Bool
	workersShouldStop atomic.Bool
	workerWG          sync.WaitGroup

	mainCtx      *threadContext
	mainDeque    *wsq.Deque[Job]
	workerDeques []*wsq.Deque[Job]

	mainExternal   *mpmc.Queue[Job]
	workerExternal *mpmc.Queue[Job]
	bgQueue        *mpmc.Queue[Job]

	// bgSemaphore is kept signed: a probe decrements first and repairs
	// on failure, and a dispatching thread temporarily returns the quota
	// it holds, so the observable value can exceed the configured
	// maximum or dip below zero in transients.
	bgSemaphore atomic.Int64

	statsMu       sync.Mutex
	finishedStats []WorkerStats
)

// Start binds the calling goroutine as the scheduler's main thread and
// spawns the worker pool. The caller is locked to its OS thread until
// Stop. Worker count is the hardware parallelism, minus one for the
// main thread when more than two CPUs are available.
func Start() {
	if !running.CompareAndSwap(false, true) {
		panic("jobsys: already started")
	}
	runtime.LockOSThread()

	workerCount := runtime.NumCPU()
	if workerCount > 2 {
		workerCount--
	}

	mainDeque = wsq.New[Job](dequeInitialCapacity)
	workerDeques = make([]*wsq.Deque[Job], workerCount)
	for i := range workerDeques {
		workerDeques[i] = wsq.New[Job](dequeInitialCapacity)
	}
	mainExternal = mpmc.New[Job](ExternalQueueCapacity)
	workerExternal = mpmc.New[Job](ExternalQueueCapacity)
	bgQueue = mpmc.New[Job](ExternalQueueCapacity)
	bgSemaphore.Store(DefaultBackgroundConcurrency)
	workersShouldStop.Store(false)
	finishedStats = nil

	mainCtx = newThreadContext("main", roleMain, mainDeque, mainExternal)
	registerContext(mainCtx)
	mainCtx.threadScope = newThreadScope(mainCtx)

	workerWG.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go runWorker(i)
	}
	Logger().Info("job system started", "workers", workerCount)
}

// Stop drains the main thread's scope, stops and joins the workers, and
// verifies the system is quiescent: every queue empty, the root scope's
// counter zero. A violation means jobs leaked past their scopes and is
// fatal.
//
// Must be called on the thread that called Start.
func Stop() {
	if !running.Load() {
		panic("jobsys: not running")
	}
	if currentContext() != mainCtx {
		panic("jobsys: Stop called off the main thread")
	}
	mainCtx.finish()
	workersShouldStop.Store(true)
	workerWG.Wait()

	if n := rootScope.pending.Load(); n != 0 {
		panic("jobsys: root scope not drained at shutdown")
	}
	if bgQueue.Len() != 0 || mainExternal.Len() != 0 || workerExternal.Len() != 0 || mainDeque.Len() != 0 {
		panic("jobsys: queues not empty at shutdown")
	}

	mainCtx = nil
	mainDeque = nil
	workerDeques = nil
	mainExternal = nil
	workerExternal = nil
	bgQueue = nil
	running.Store(false)
	runtime.UnlockOSThread()
	Logger().Info("job system stopped")
}

// Dispatch pumps the calling thread's active scope until it is
// satisfied. This is the reentry point a main-thread event loop calls
// once per frame; on the main thread it also drains the main external
// queue afterward.
func Dispatch() {
	mustContext().activeScope.Dispatch()
}

// ModifyBackgroundConcurrency adjusts the background semaphore by delta.
// Raising it admits more concurrent background jobs immediately;
// lowering it takes effect as running jobs finish.
func ModifyBackgroundConcurrency(delta int) {
	bgSemaphore.Add(int64(delta))
}

// Stats returns the dispatch counters of every thread that has finished.
// Complete only after Stop.
func Stats() []WorkerStats {
	statsMu.Lock()
	defer statsMu.Unlock()
	out := make([]WorkerStats, len(finishedStats))
	copy(out, finishedStats)
	return out
}

func recordStats(s WorkerStats) {
	statsMu.Lock()
	finishedStats = append(finishedStats, s)
	statsMu.Unlock()
}
