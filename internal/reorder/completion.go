package reorder

import "context"

// Completion is the pending result of Coordinator.End.
type Completion[T comparable] struct {
	outcome   Outcome[T]
	committed bool
	done      chan struct{}

	// Written once before done is closed.
	err       error
	cancelled bool
}

func newCompletion[T comparable](out Outcome[T], committed bool) *Completion[T] {
	return &Completion[T]{outcome: out, committed: committed, done: make(chan struct{})}
}

func settledCompletion[T comparable](out Outcome[T]) *Completion[T] {
	c := newCompletion(out, false)
	close(c.done)
	return c
}

func (c *Completion[T]) settle(err error, cancelled bool) {
	c.err = err
	c.cancelled = cancelled
	close(c.done)
}

// Outcome is the move the session ended with.
func (c *Completion[T]) Outcome() Outcome[T] { return c.outcome }

// Committed reports whether the list was moved and persistence was started.
func (c *Completion[T]) Committed() bool { return c.committed }

// Done is closed once persistence has settled (immediately for sessions that did not commit).
func (c *Completion[T]) Done() <-chan struct{} { return c.done }

// Err returns the persistence error. It is only meaningful after Done is closed.
func (c *Completion[T]) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Cancelled reports whether a committed session was cancelled by the host before it settled.
func (c *Completion[T]) Cancelled() bool {
	select {
	case <-c.done:
		return c.cancelled
	default:
		return false
	}
}

// Wait blocks until persistence settles or ctx is done.
func (c *Completion[T]) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
