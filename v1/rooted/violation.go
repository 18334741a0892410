package rooted

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/metrics"
	"github.com/mirkobrombin/go-rooted/v1/tag"
)

// ViolationError describes a broken lock-discipline contract. Kind is one of
// the sentinels in the errors package.
type ViolationError struct {
	Kind   error
	Tag    tag.Tag
	Detail string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%v [%v]: %s", e.Kind, e.Tag, e.Detail)
}

func (e *ViolationError) Unwrap() error {
	return e.Kind
}

// ViolationHandler receives violations that cannot be raised as a panic at
// the call site, such as an Rc collected without Release.
type ViolationHandler func(err error)

var handler atomic.Pointer[ViolationHandler]

// SetViolationHandler installs h and returns a function restoring the
// previous handler. A nil h restores the default, which logs the violation
// and panics.
func SetViolationHandler(h ViolationHandler) (restore func()) {
	var prev *ViolationHandler
	if h == nil {
		prev = handler.Swap(nil)
	} else {
		prev = handler.Swap(&h)
	}
	return func() { handler.Store(prev) }
}

func defaultViolationHandler(err error) {
	slog.Error("rooted: lock-discipline violation", "error", err)
	panic(err)
}

func violation(kind error, t tag.Tag, format string, args ...any) *ViolationError {
	return &ViolationError{Kind: kind, Tag: t, Detail: fmt.Sprintf(format, args...)}
}

// raise counts err and panics with it.
func raise(err *ViolationError) {
	metrics.ViolationCounter.WithLabelValues(kindLabel(err.Kind)).Inc()
	panic(err)
}

func fail(kind error, t tag.Tag, format string, args ...any) {
	raise(violation(kind, t, format, args...))
}

// report counts err and hands it to the installed handler.
func report(err *ViolationError) {
	metrics.ViolationCounter.WithLabelValues(kindLabel(err.Kind)).Inc()
	if h := handler.Load(); h != nil {
		(*h)(err)
		return
	}
	defaultViolationHandler(err)
}

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, rerrors.ErrTagMismatch):
		return "tag_mismatch"
	case errors.Is(kind, rerrors.ErrGuardReleased):
		return "guard_released"
	case errors.Is(kind, rerrors.ErrBorrowConflict):
		return "borrow_conflict"
	case errors.Is(kind, rerrors.ErrBorrowOutstanding):
		return "borrow_outstanding"
	case errors.Is(kind, rerrors.ErrReleased):
		return "released"
	case errors.Is(kind, rerrors.ErrUnreleased):
		return "unreleased"
	default:
		return "other"
	}
}
