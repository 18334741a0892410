package errors

import "errors"

var (
	// ErrTagMismatch is raised when a guard for one root is presented to a
	// handle tagged with another.
	ErrTagMismatch = errors.New("rooted: guard tag does not match handle tag")

	// ErrGuardReleased is raised when a guard is used after Unlock.
	ErrGuardReleased = errors.New("rooted: guard already released")

	ErrBorrowConflict    = errors.New("rooted: conflicting borrow outstanding")
	ErrBorrowOutstanding = errors.New("rooted: guard unlocked with borrows outstanding")

	// ErrReleased is raised when a handle or borrow is used after Release.
	ErrReleased = errors.New("rooted: handle already released")

	// ErrUnreleased is reported when an Rc becomes unreachable without Release.
	ErrUnreleased = errors.New("rooted: handle discarded without release")

	ErrTagExhausted = errors.New("rooted: tag space exhausted")
)
