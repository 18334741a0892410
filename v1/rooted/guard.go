package rooted

import (
	"time"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/tag"
)

// borrow is an outstanding Ref or RefMut.
type borrow interface {
	Release()
}

// Guard proves that its holder owns a root's lock. Only the lock methods of
// Root create guards, and at most one guard per root is held at a time.
//
// A guard belongs to the goroutine that acquired it until Unlock.
type Guard struct {
	root *Root
	tag  tag.Tag
	held bool
	// borrows made under this guard and not yet released, oldest first.
	borrows  []borrow
	acquired time.Time
}

// Tag returns the tag of the root this guard locks.
func (g *Guard) Tag() tag.Tag {
	return g.tag
}

// Held reports whether the guard has not been unlocked yet.
func (g *Guard) Held() bool {
	return g != nil && g.held
}

// Unlock releases the root. It panics if the guard was already unlocked, or
// if RefCell borrows made under it are still outstanding; in the latter case
// the root stays locked.
func (g *Guard) Unlock() {
	if g == nil {
		fail(rerrors.ErrGuardReleased, tag.Tag{}, "unlock of a nil guard")
	}
	if !g.held {
		fail(rerrors.ErrGuardReleased, g.tag, "unlock of a released guard")
	}
	if n := len(g.borrows); n > 0 {
		fail(rerrors.ErrBorrowOutstanding, g.tag, "%d borrow(s) still outstanding", n)
	}
	g.release()
}

// forceUnlock ends every outstanding borrow and unlocks the root. It is used
// while unwinding a panic, when the borrows can no longer be used.
func (g *Guard) forceUnlock() {
	if !g.held {
		return
	}
	for n := len(g.borrows); n > 0; n = len(g.borrows) {
		g.borrows[n-1].Release()
	}
	g.release()
}

func (g *Guard) release() {
	g.held = false
	if g.root.holdHist != nil && !g.acquired.IsZero() {
		g.root.holdHist.Observe(time.Since(g.acquired).Seconds())
	}
	<-g.root.sem
}

func (g *Guard) track(b borrow) {
	g.borrows = append(g.borrows, b)
}

// forget drops b from the outstanding set. Borrows are usually released in
// reverse order, so the search starts at the end.
func (g *Guard) forget(b borrow) {
	for i := len(g.borrows) - 1; i >= 0; i-- {
		if g.borrows[i] == b {
			g.borrows = append(g.borrows[:i], g.borrows[i+1:]...)
			return
		}
	}
}

// check panics unless g is held and locks the root tagged t.
func (g *Guard) check(t tag.Tag) {
	if g == nil {
		fail(rerrors.ErrGuardReleased, t, "no guard presented")
	}
	if !g.held {
		fail(rerrors.ErrGuardReleased, t, "guard for %v used after unlock", g.tag)
	}
	if g.tag != t {
		fail(rerrors.ErrTagMismatch, t, "tried using a lock for %v instead of %v", g.tag, t)
	}
}
