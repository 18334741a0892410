package rooted

import (
	"runtime"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/tag"
)

// Dropper is implemented by payloads that need teardown when the last Rc
// referring to them is released.
type Dropper interface {
	Drop()
}

// rcBox is the block shared by every Rc cloned from the same NewRc call.
// count is plain memory; it is only touched while the owning root is locked.
type rcBox[T any] struct {
	count int
	value T
}

// Rc is a reference-counted pointer whose count is protected by a root's
// lock instead of atomic instructions. Clone and Release require a Guard for
// the root the Rc was tagged with. Reading the payload and passing the *Rc to
// another goroutine require nothing.
//
// Every Rc must be retired with Release. An Rc collected without Release is
// reported as an ErrUnreleased violation and its block is leaked: the count
// is never decremented and the payload is never dropped.
//
// An Rc must not be copied: a copy is a handle the count does not know about.
// Use Clone.
type Rc[T any] struct {
	noCopy noCopy

	tag tag.Tag
	box *rcBox[T]
}

// NewRc wraps value in a new block with a count of one. No lock is needed.
func NewRc[T any](t tag.Tag, value T) *Rc[T] {
	return track(&Rc[T]{tag: t, box: &rcBox[T]{count: 1, value: value}})
}

func track[T any](r *Rc[T]) *Rc[T] {
	runtime.SetFinalizer(r, (*Rc[T]).discarded)
	return r
}

// discarded runs when r is collected. It must not touch the shared count: no
// lock is held here, so the block is leaked instead.
func (r *Rc[T]) discarded() {
	if r.box == nil {
		return
	}
	r.box = nil
	var zero T
	report(violation(rerrors.ErrUnreleased, r.tag, "Rc[%T] collected without Release; payload leaked", zero))
}

// Tag returns the tag of the root guarding r.
func (r *Rc[T]) Tag() tag.Tag {
	return r.tag
}

// Get returns a copy of the payload. It never needs a lock.
func (r *Rc[T]) Get() T {
	return r.live().value
}

// Ptr returns a pointer to the shared payload. The payload is shared by every
// clone; mutate it only through a RefCell or the payload's own synchronisation.
func (r *Rc[T]) Ptr() *T {
	return &r.live().value
}

// Clone returns a new handle to the same block, incrementing the count. It
// panics unless g is held and locks r's root.
func (r *Rc[T]) Clone(g *Guard) *Rc[T] {
	g.check(r.tag)
	return r.UncheckedClone()
}

// UncheckedClone is Clone without the guard check.
//
// UNSAFE: the caller must hold the lock of r's root. Calling it otherwise
// races on the count.
func (r *Rc[T]) UncheckedClone() *Rc[T] {
	b := r.live()
	b.count++
	return track(&Rc[T]{tag: r.tag, box: b})
}

// StrongCount returns the number of live handles sharing r's block.
func (r *Rc[T]) StrongCount(g *Guard) int {
	g.check(r.tag)
	return r.live().count
}

// Release retires r, decrementing the count. The last release drops the
// payload if it implements Dropper. r must not be used afterwards.
func (r *Rc[T]) Release(g *Guard) {
	g.check(r.tag)
	b := r.live()
	r.box = nil
	runtime.SetFinalizer(r, nil)

	b.count--
	if b.count > 0 {
		return
	}
	drop(&b.value)
	var zero T
	b.value = zero
}

func (r *Rc[T]) live() *rcBox[T] {
	if r.box == nil {
		fail(rerrors.ErrReleased, r.tag, "use of a released Rc")
	}
	return r.box
}

// noCopy makes go vet's copylocks check flag copies of the embedding struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func drop[T any](v *T) {
	if d, ok := any(*v).(Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
}
