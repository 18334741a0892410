package rooted

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
)

func TestMain(m *testing.M) {
	// A handle leaked by a failing test must not take the whole binary down
	// from the finalizer goroutine.
	SetViolationHandler(func(err error) {
		slog.Warn("rooted test: violation reported", "error", err)
	})
	os.Exit(m.Run())
}

// expectViolation runs fn and fails unless it panics with a *ViolationError
// of the given kind.
func expectViolation(t *testing.T, kind error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected %v panic, got %v", kind, r)
		}
		var ve *ViolationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected *ViolationError, got %T: %v", err, err)
		}
		if !errors.Is(err, kind) {
			t.Fatalf("expected %v, got %v", kind, err)
		}
	}()
	fn()
}

type dropCounter struct {
	n atomic.Int32
}

// payload records its Drop so tests can observe payload destruction.
type payload struct {
	value int
	drops *dropCounter
}

func (p payload) Drop() {
	p.drops.n.Add(1)
}

// resource has a pointer-receiver Drop.
type resource struct {
	closed bool
}

func (r *resource) Drop() {
	r.closed = true
}
