// Package rooted provides shared ownership and interior mutability for values
// that live inside a coarse-grained lock domain.
//
// A Root is a named mutex. Locking it yields a Guard, the proof that the
// calling goroutine holds the domain. Rc and RefCell keep their bookkeeping
// (reference count, borrow flag) in plain memory and demand a Guard with a
// matching tag for every operation that touches it. Reading an Rc payload and
// moving a handle between goroutines need no lock at all.
//
// Contract violations (a foreign guard, a conflicting borrow, a handle used
// after release) panic with a *ViolationError. An Rc that becomes unreachable
// without Release is never decremented: its block is leaked and the violation
// is sent to the handler installed with SetViolationHandler, which by default
// logs and terminates the process.
//
// Deadlock avoidance across several roots is the caller's responsibility.
package rooted
