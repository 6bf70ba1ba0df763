// Package refcount provides an intrusive atomic reference count and a
// typed handle for resources whose release must be deterministic (GPU
// objects, cache entries with eviction rules).
//
// Garbage collection alone cannot express "destroy this texture when the
// last holder lets go"; the count makes the last release observable.
package refcount

import "sync/atomic"

// Object is anything carrying an intrusive reference count.
type Object interface {
	AddRef() int64
	Release() int64
	RefCount() int64
}

// RefCounted is an embeddable atomic reference count.
//
// The count starts at zero; the creating party takes the first reference
// explicitly. An optional finalizer runs exactly once, when the count
// drops to zero.
type RefCounted struct {
	refs      atomic.Int64
	finalizer func()
}

// SetFinalizer installs the function invoked when the count reaches
// zero. Must be set before the object is shared.
func (r *RefCounted) SetFinalizer(f func()) {
	r.finalizer = f
}

// AddRef increments the count and returns the new value.
func (r *RefCounted) AddRef() int64 {
	return r.refs.Add(1)
}

// Release decrements the count and returns the new value. The finalizer
// runs on the call that reaches zero.
func (r *RefCounted) Release() int64 {
	n := r.refs.Add(-1)
	if n == 0 && r.finalizer != nil {
		r.finalizer()
	}
	return n
}

// RefCount returns the current count.
func (r *RefCounted) RefCount() int64 {
	return r.refs.Load()
}

// Ref is a counted handle to an Object. The zero value is empty.
//
// Go has no copy constructors, so sharing is explicit: Clone takes a new
// reference, Release drops one. A Ref that was copied by plain
// assignment shares the count with its origin and must not be released
// twice; use Clone for an independent handle.
type Ref[T Object] struct {
	ptr T
	set bool
}

// NewRef takes a reference on p and returns a handle for it.
func NewRef[T Object](p T) Ref[T] {
	p.AddRef()
	return Ref[T]{ptr: p, set: true}
}

// Get returns the referenced object. Valid only while the handle holds a
// reference.
func (r *Ref[T]) Get() T {
	return r.ptr
}

// Valid reports whether the handle holds a reference.
func (r *Ref[T]) Valid() bool {
	return r.set
}

// Clone returns an independent handle, incrementing the count.
func (r *Ref[T]) Clone() Ref[T] {
	if !r.set {
		return Ref[T]{}
	}
	return NewRef(r.ptr)
}

// Set replaces the referenced object, releasing the previous one. Safe
// against self-assignment: the new reference is taken before the old one
// is dropped.
func (r *Ref[T]) Set(p T) {
	p.AddRef()
	if r.set {
		r.ptr.Release()
	}
	r.ptr = p
	r.set = true
}

// Release drops the handle's reference. The handle becomes empty;
// releasing an empty handle is a no-op.
func (r *Ref[T]) Release() {
	if !r.set {
		return
	}
	r.set = false
	r.ptr.Release()
	var zero T
	r.ptr = zero
}
