package rooted

import (
	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/tag"
)

// exclusive marks a RefCell that is mutably borrowed.
const exclusive = -1

// RefCell is a runtime borrow-checked cell. Any number of shared borrows or a
// single exclusive borrow may be outstanding, never both. Borrowing requires a
// Guard for the cell's root, and every borrow is tied to that guard: the
// guard cannot be unlocked while the borrow is outstanding.
//
// A RefCell must not be copied after first use.
type RefCell[T any] struct {
	noCopy noCopy

	tag tag.Tag
	// borrow is the number of shared borrows, or exclusive.
	borrow int
	value  T
}

// NewRefCell returns a cell holding value. No lock is needed.
func NewRefCell[T any](t tag.Tag, value T) *RefCell[T] {
	return &RefCell[T]{tag: t, value: value}
}

// Tag returns the tag of the root guarding c.
func (c *RefCell[T]) Tag() tag.Tag {
	return c.tag
}

// Borrow returns a shared borrow. It panics if c is mutably borrowed.
func (c *RefCell[T]) Borrow(g *Guard) *Ref[T] {
	ref, err := c.TryBorrow(g)
	if err != nil {
		raise(err.(*ViolationError))
	}
	return ref
}

// TryBorrow is like Borrow but returns an error wrapping ErrBorrowConflict
// instead of panicking. A foreign guard still panics.
func (c *RefCell[T]) TryBorrow(g *Guard) (*Ref[T], error) {
	g.check(c.tag)
	if c.borrow == exclusive {
		return nil, violation(rerrors.ErrBorrowConflict, c.tag, "already mutably borrowed")
	}
	c.borrow++
	ref := &Ref[T]{cell: c, guard: g}
	g.track(ref)
	return ref, nil
}

// BorrowMut returns an exclusive borrow. It panics if any borrow is
// outstanding.
func (c *RefCell[T]) BorrowMut(g *Guard) *RefMut[T] {
	ref, err := c.TryBorrowMut(g)
	if err != nil {
		raise(err.(*ViolationError))
	}
	return ref
}

// TryBorrowMut is like BorrowMut but returns an error wrapping
// ErrBorrowConflict instead of panicking.
func (c *RefCell[T]) TryBorrowMut(g *Guard) (*RefMut[T], error) {
	g.check(c.tag)
	switch {
	case c.borrow == exclusive:
		return nil, violation(rerrors.ErrBorrowConflict, c.tag, "already mutably borrowed")
	case c.borrow > 0:
		return nil, violation(rerrors.ErrBorrowConflict, c.tag, "already borrowed %d time(s)", c.borrow)
	}
	c.borrow = exclusive
	ref := &RefMut[T]{cell: c, guard: g}
	g.track(ref)
	return ref, nil
}

// Read calls fn with the current value under a shared borrow.
func (c *RefCell[T]) Read(g *Guard, fn func(v T)) {
	ref := c.Borrow(g)
	defer ref.Release()
	fn(ref.Get())
}

// Update calls fn with a pointer to the value under an exclusive borrow. The
// pointer must not escape fn.
func (c *RefCell[T]) Update(g *Guard, fn func(v *T)) {
	ref := c.BorrowMut(g)
	defer ref.Release()
	fn(ref.Get())
}

// Replace stores v and returns the previous value.
func (c *RefCell[T]) Replace(g *Guard, v T) T {
	ref := c.BorrowMut(g)
	defer ref.Release()
	old := *ref.Get()
	ref.Set(v)
	return old
}

// Ref is a shared borrow of a RefCell.
type Ref[T any] struct {
	cell     *RefCell[T]
	guard    *Guard
	released bool
}

// Get returns a copy of the borrowed value.
func (r *Ref[T]) Get() T {
	r.live()
	return r.cell.value
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *Ref[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.cell.borrow--
	r.guard.forget(r)
}

func (r *Ref[T]) live() {
	if r.released {
		fail(rerrors.ErrReleased, r.cell.tag, "use of a released borrow")
	}
}

// RefMut is an exclusive borrow of a RefCell.
type RefMut[T any] struct {
	cell     *RefCell[T]
	guard    *Guard
	released bool
}

// Get returns a pointer to the borrowed value. It must not be used after
// Release.
func (r *RefMut[T]) Get() *T {
	r.live()
	return &r.cell.value
}

// Set overwrites the borrowed value.
func (r *RefMut[T]) Set(v T) {
	r.live()
	r.cell.value = v
}

// Release ends the borrow. Releasing twice is a no-op.
func (r *RefMut[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.cell.borrow = 0
	r.guard.forget(r)
}

func (r *RefMut[T]) live() {
	if r.released {
		fail(rerrors.ErrReleased, r.cell.tag, "use of a released borrow")
	}
}
