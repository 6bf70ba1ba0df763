// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package asset is an asynchronous, deduplicating asset cache built on
// the jobsys scheduler.
//
// Each Get returns a reference-counted handle immediately; the load
// happens on a small pool of reader threads. A caller's active job
// scope is registered on the asset, so the caller's next
// Scope.Dispatch blocks until every asset it requested has landed.
// Loads are deduplicated per path: however many threads race on the
// same path, the file is read once and the load body runs once.
package asset

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/jobsys"
	"github.com/gogpu/jobsys/refcount"
)

// Asset is one cache entry: a path, a load-state flag, the scopes
// waiting for the load, and the payload once loaded.
//
// The payload is written exactly once. Any goroutine that observes
// IsLoaded() == true observes the fully written payload (the flag is
// the release/acquire pair). Handles are reference-counted; Release
// every handle a Get returned.
type Asset[T any] struct {
	refcount.RefCounted

	path string

	// loaded flips to true exactly once, under mu, after the payload is
	// written. Readable without the lock.
	loaded atomic.Bool

	mu      sync.Mutex
	waiting []*jobsys.Scope

	payload T

	// load runs the kind-specific load body. Invoked at most once, on a
	// reader thread.
	load func(a *Asset[T], env *loadEnv)

	started bool
	done    chan struct{}
}

func newAsset[T any](path string, load func(*Asset[T], *loadEnv)) *Asset[T] {
	return &Asset[T]{path: path, load: load, done: make(chan struct{})}
}

// Path returns the normalized path this asset was created under.
func (a *Asset[T]) Path() string { return a.path }

// IsLoaded reports whether the payload is available.
func (a *Asset[T]) IsLoaded() bool { return a.loaded.Load() }

// Get returns the payload. The asset must be loaded: dispatch the scope
// that requested it first, or check IsLoaded. The payload is immutable
// once loaded.
func (a *Asset[T]) Get() T {
	if !a.loaded.Load() {
		panic(fmt.Sprintf("asset: %q accessed before load completed", a.path))
	}
	return a.payload
}

// registerScope adds s as a waiter, charging it +1 pending, unless the
// load has already completed — then the caller may read the payload
// immediately and no charge is made.
func (a *Asset[T]) registerScope(s *jobsys.Scope) {
	if s == nil {
		return
	}
	a.mu.Lock()
	if !a.loaded.Load() {
		s.AddPending(1)
		a.waiting = append(a.waiting, s)
	}
	a.mu.Unlock()
}

// complete publishes the payload and signals every waiting scope exactly
// once.
func (a *Asset[T]) complete(payload T) {
	a.mu.Lock()
	a.payload = payload
	a.loaded.Store(true)
	waiters := a.waiting
	a.waiting = nil
	a.mu.Unlock()

	for _, s := range waiters {
		s.AddPending(-1)
	}
}

// loadIfNotLoaded runs the load body at most once. A concurrent caller
// (a reader loading a dependent asset) blocks until the body has
// finished, so it can read the payload afterward. Note that "body
// finished" and "loaded" differ for assets whose completion is handed
// to the main thread; dependents of those synchronize through scopes,
// not through this call.
func (a *Asset[T]) loadIfNotLoaded(env *loadEnv) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.started = true
	a.mu.Unlock()

	a.load(a, env)
	close(a.done)
}

// assetPath and release let the read-request queue hold assets of any
// payload type.
func (a *Asset[T]) assetPath() string { return a.path }
func (a *Asset[T]) release()          { a.Release() }

type loadable interface {
	assetPath() string
	loadIfNotLoaded(env *loadEnv)
	release()
}

// loadEnv is what a reader thread lends to the load bodies it runs: the
// loader (for dependency requests) and the thread's command recorder.
type loadEnv struct {
	loader *Loader
	rec    CommandRecorder
}
