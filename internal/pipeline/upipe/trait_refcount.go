package upipe

import "sync/atomic"

// RefCounted is the first of this package's explicit capability traits,
// replacing libupipe's macro-expanded UPIPE_HELPER_REFCOUNT mixin
// members: a stage embeds RefCounted and calls Use/Release instead of
// inheriting reference-counting behavior.
type RefCounted struct {
	count atomic.Int32
}

// InitRefCount sets the initial reference count to 1, called once from a
// stage's Alloc.
func (r *RefCounted) InitRefCount() { r.count.Store(1) }

// Use increments the reference count, e.g. when a subpipe registers its
// owning back-reference to a parent.
func (r *RefCounted) Use() { r.count.Add(1) }

// Release decrements the reference count and invokes onZero once it
// reaches zero — the point at which the stage itself should tear down.
func (r *RefCounted) Release(onZero func()) {
	if r.count.Add(-1) == 0 && onZero != nil {
		onZero()
	}
}

// Count reports the current reference count (debug/test use only).
func (r *RefCounted) Count() int32 { return r.count.Load() }
