// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Remote is the injected persistence interface. Apply must classify its
// failures with DispatchError; an unclassified error is treated as
// retryable so the queue never drops an operation on unknown grounds.
type Remote interface {
	Apply(ctx context.Context, op Op) error
}

// DispatchError classifies a remote failure. Retryable failures keep the
// operation at the queue head; non-retryable failures drop it with a
// logged warning so one broken operation never blocks the rest.
type DispatchError struct {
	Retryable bool
	Reason    string
	Err       error
}

func (e *DispatchError) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s dispatch failure: %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s dispatch failure: %s", kind, e.Reason)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Retryable wraps err as a transient failure.
func Retryable(reason string, err error) *DispatchError {
	return &DispatchError{Retryable: true, Reason: reason, Err: err}
}

// NonRetryable wraps err as a terminal failure for this operation.
func NonRetryable(reason string, err error) *DispatchError {
	return &DispatchError{Retryable: false, Reason: reason, Err: err}
}

// isRetryable reports whether the queue should hold the head operation.
func isRetryable(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return true
}

// Queue is the ordered, idempotent dispatcher. Mutations are applied to
// the in-memory graph before dispatch; the queue only mirrors them to the
// remote. Dispatch is fire-and-forget for the caller; flushes serialize,
// so a synchronous Flush never returns while another drain still holds
// queued work.
type Queue struct {
	remote Remote
	log    *slog.Logger

	mu        sync.Mutex
	pending   []Op
	connected bool
	flushing  bool
	done      chan struct{}

	dropped atomic.Int64
}

// flushToken marks the context handed to Remote.Apply during a drain. A
// remote that calls Flush from inside its own callback would otherwise
// wait on the drain it is part of.
type flushToken struct{}

// New returns a queue over the given remote. A nil remote means
// disconnected until SetRemote; a nil logger falls back to slog.Default.
func New(remote Remote, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{remote: remote, log: logger}
	q.connected = remote != nil
	return q
}

// Dispatch appends the operation in FIFO order and, when a connection
// exists, triggers an asynchronous flush. Never blocks on the remote.
// The payload is snapshotted here: the caller keeps mutating its live
// graph entities while the drain reads the op from another goroutine.
func (q *Queue) Dispatch(op Op) {
	op = op.clone()
	q.mu.Lock()
	q.pending = append(q.pending, op)
	connected := q.connected
	q.mu.Unlock()

	if connected {
		go q.Flush(context.Background())
	}
}

// SetRemote swaps the persistence target and reconnects. Pending
// operations flush to the new remote in their original order.
func (q *Queue) SetRemote(remote Remote) {
	q.mu.Lock()
	q.remote = remote
	q.connected = remote != nil
	q.mu.Unlock()
}

// SetConnected flips connection state. Reconnecting triggers an
// asynchronous drain of whatever accumulated while offline.
func (q *Queue) SetConnected(connected bool) {
	q.mu.Lock()
	if q.remote == nil {
		connected = false
	}
	q.connected = connected
	q.mu.Unlock()

	if connected {
		go q.Flush(context.Background())
	}
}

// Pending reports the number of queued operations.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped reports how many operations were discarded as non-retryable.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Flush drains the queue strictly head-first and returns once the queue
// is empty, disconnected, or a retryable failure holds the head. A caller
// that finds a drain already in flight waits for it and then drains
// whatever remains, so a synchronous Flush never abandons work to a
// background goroutine. Calls re-entered from inside a remote Apply
// callback return immediately.
func (q *Queue) Flush(ctx context.Context) {
	if ctx.Value(flushToken{}) != nil {
		return
	}
	for {
		q.mu.Lock()
		if q.flushing {
			inFlight := q.done
			q.mu.Unlock()
			select {
			case <-inFlight:
				continue
			case <-ctx.Done():
				return
			}
		}
		if !q.connected || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		q.flushing = true
		done := make(chan struct{})
		q.done = done
		q.mu.Unlock()

		q.drain(ctx)

		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
		close(done)
		return
	}
}

// drain applies pending operations in order. A retryable failure stops
// the drain and leaves the remainder intact for the next trigger; a
// non-retryable failure drops only the head, logs a warning, and
// continues. Items are never reordered.
func (q *Queue) drain(ctx context.Context) {
	ctx = context.WithValue(ctx, flushToken{}, struct{}{})
	for {
		q.mu.Lock()
		if !q.connected || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		op := q.pending[0]
		remote := q.remote
		q.mu.Unlock()

		err := remote.Apply(ctx, op)
		if err == nil {
			q.pop()
			continue
		}

		if isRetryable(err) {
			q.log.Debug("dispatch deferred, keeping queue head",
				"kind", op.Kind, "key", op.Key(), "error", err)
			return
		}

		q.log.Warn("dropping non-retryable operation",
			"kind", op.Kind, "key", op.Key(), "error", err)
		q.dropped.Add(1)
		q.pop()
	}
}

func (q *Queue) pop() {
	q.mu.Lock()
	if len(q.pending) > 0 {
		q.pending = q.pending[1:]
	}
	q.mu.Unlock()
}
