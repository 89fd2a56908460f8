package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by Push when the queue was created with a
	// pending limit and that limit has been reached.
	ErrQueueFull = errors.New("queue: full")
	// ErrClosed is returned by Push and Pop once the queue has been closed.
	ErrClosed = errors.New("queue: closed")
)

// Queue is a FIFO queue safe for any number of concurrent producers and
// consumers. Push never blocks; Pop blocks until an item is available.
type Queue[T any] struct {
	mu         sync.Mutex
	items      []T
	maxPending int
	closed     bool

	// ready holds at most one wake-up token for a blocked Pop.
	ready chan struct{}
	done  chan struct{}
}

// New creates a queue. A maxPending of zero or less means the queue is
// unbounded and Push never rejects.
func New[T any](maxPending int) *Queue[T] {
	return &Queue[T]{
		maxPending: maxPending,
		ready:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Push appends an item to the tail of the queue.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.maxPending > 0 && len(q.items) >= q.maxPending {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes and returns the head of the queue, waiting until an item is
// pushed, ctx is done or the queue is closed.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()

			// Pass the token on so another waiting consumer picks up the rest.
			if more {
				q.signal()
			}
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue from accepting new items. Items already pending can
// still be popped; once drained, Pop returns ErrClosed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
