// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"
)

// ReaderThreads is the number of dedicated blocking-I/O threads.
const ReaderThreads = 2

// readRequest pairs a path with the asset to load. An empty path is the
// shutdown sentinel; each reader consumes exactly one.
type readRequest struct {
	path   string
	target loadable
}

// requestQueue is the blocking queue the readers drain. Producers are
// any threads calling Get*; consumers are the readers. Unbounded: a
// burst of requests during level load must never stall the requesting
// thread.
type requestQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items *queue.Queue
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{items: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *requestQueue) push(r readRequest) {
	q.mu.Lock()
	q.items.Add(r)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *requestQueue) pop() readRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() == 0 {
		q.cond.Wait()
	}
	return q.items.Remove().(readRequest)
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// runReader is one reader thread: block on the queue, load, release the
// request's reference, repeat until the sentinel. The command recorder
// is created once and reused across loads; reader threads stay locked
// to their OS thread so the recorder sees a stable thread underneath.
//
// A reader may reenter the loader for sub-assets (an image load
// requests its blob); it never runs job-system jobs.
func (l *Loader) runReader(index int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rec := l.host.NewCommandRecorder()
	env := &loadEnv{loader: l, rec: rec}
	logger().Debug("reader started", "reader", index)

	for {
		req := l.requests.pop()
		if req.path == "" {
			break
		}
		req.target.loadIfNotLoaded(env)
		req.target.release()
	}

	rec.Release()
	logger().Debug("reader stopped", "reader", index)
}
