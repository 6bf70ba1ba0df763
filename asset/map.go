// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package asset

import "sync"

// Map is a keyed, deduplicating cache for one asset kind. A path maps
// to at most one entry; concurrent GetOrCreate calls on the same path
// observe the same entry. The map holds one reference to every entry it
// contains.
//
// Map is safe for concurrent use. The lock covers only table mutation;
// loads never run under it.
type Map[T any] struct {
	mu      sync.Mutex
	entries map[string]*Asset[T]
}

// NewMap creates an empty map.
func NewMap[T any]() *Map[T] {
	return &Map[T]{entries: make(map[string]*Asset[T])}
}

// GetOrCreate looks up path, creating the entry via factory on a miss.
// The returned asset carries a new reference the caller must Release.
// created reports whether this call inserted the entry — the caller
// queues exactly one read request when it did.
func (m *Map[T]) GetOrCreate(path string, factory func() *Asset[T]) (a *Asset[T], created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.entries[path]; ok {
		a.AddRef()
		return a, false
	}
	a = factory()
	a.AddRef() // the map's reference
	a.AddRef() // the returned handle's reference
	m.entries[path] = a
	return a, true
}

// GarbageCollect drops entries whose only remaining reference is the
// map's own. In incremental mode at most one entry is dropped, bounding
// the pause when called once per frame. Returns the number of entries
// dropped.
func (m *Map[T]) GarbageCollect(incremental bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for path, a := range m.entries {
		if a.RefCount() != 1 {
			continue
		}
		delete(m.entries, path)
		a.Release()
		n++
		if incremental {
			break
		}
	}
	return n
}

// Clear drops every entry regardless of outside references. Only legal
// when no handles remain in flight (loader cleanup).
func (m *Map[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for path, a := range m.entries {
		delete(m.entries, path)
		a.Release()
	}
}

// Len returns the number of cached entries.
func (m *Map[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
