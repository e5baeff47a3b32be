package client

import (
	"context"
	"sync"
	"time"

	wberr "whiteboard/internal/errors"
)

// Tracker is a single-slot rendezvous between one requesting goroutine
// and the listener that receives the reply.
//
// A cycle starts with Reset and ends with the first Complete.  Waiting
// never polls: each cycle owns a channel that Complete closes.  When a
// wait times out the value from the most recent completed cycle is
// returned, which may be stale or the zero value.
type Tracker[T any] struct {
	mu        sync.Mutex
	value     T
	done      chan struct{}
	completed bool
}

// NewTracker returns a tracker with an open cycle.
func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{done: make(chan struct{})}
}

// Reset starts a new cycle.  The last value is kept.
func (t *Tracker[T]) Reset() {
	t.mu.Lock()
	t.done = make(chan struct{})
	t.completed = false
	t.mu.Unlock()
}

// Complete publishes v and wakes the waiter.  Only the first Complete of
// a cycle has any effect; it reports whether this call was that one.
func (t *Tracker[T]) Complete(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return false
	}
	t.value = v
	t.completed = true
	close(t.done)
	return true
}

// Await blocks until the current cycle completes or d elapses.  A
// timeout is never reported before d has passed.
func (t *Tracker[T]) Await(d time.Duration) (v T, timedOut bool) {
	v, err := t.Wait(context.Background(), d)
	return v, err != nil
}

// Wait is Await bounded additionally by ctx.  It returns ErrTimeout when
// d elapses first and ctx.Err() when ctx is done first.
func (t *Tracker[T]) Wait(ctx context.Context, d time.Duration) (T, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var err error
	select {
	case <-done:
	case <-timer.C:
		err = wberr.ErrTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil && t.completed && t.done == done {
		// Completion raced the timeout or cancellation; the reply wins.
		err = nil
	}
	return t.value, err
}
