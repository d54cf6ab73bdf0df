// guard/guard.go
package guard

import (
	"time"

	"reactor-sys-go/errcode"
)

// Cell is a value behind a mutual-exclusion lock with bounded-wait
// acquisition. It is the only primitive through which shared mutable
// state is touched anywhere in the system; every exit path must pair an
// Acquire with a Release, which With enforces for callers.
type Cell[T any] struct {
	sem chan struct{}
	v   T
}

// NewCell wraps v in an unlocked cell.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{sem: make(chan struct{}, 1), v: v}
}

// Acquire takes the lock, waiting at most d. It returns
// errcode.LockTimeout if the lock is still held when the wait expires.
func (c *Cell[T]) Acquire(d time.Duration) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	default:
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-t.C:
		return errcode.LockTimeout
	}
}

// AcquireBlocking takes the lock with no bound on the wait. Reserved
// for callers that cannot skip a cycle: the diagnostic sink, which
// must never drop output, and state cells whose critical section is a
// single assignment.
func (c *Cell[T]) AcquireBlocking() {
	c.sem <- struct{}{}
}

// Release gives the lock back. Calling it without holding the lock is
// a programming error and panics.
func (c *Cell[T]) Release() {
	select {
	case <-c.sem:
	default:
		panic("guard: release of unlocked cell")
	}
}

// Value returns a pointer to the wrapped value. Callers must hold the
// lock; prefer With, which cannot leak it.
func (c *Cell[T]) Value() *T { return &c.v }

// With runs fn with exclusive access to the value, releasing the lock
// on every exit path including panic.
func (c *Cell[T]) With(d time.Duration, fn func(*T)) error {
	if err := c.Acquire(d); err != nil {
		return err
	}
	defer c.Release()
	fn(&c.v)
	return nil
}
