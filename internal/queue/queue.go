// Package queue provides the unbounded blocking FIFO that carries tasks from
// the producer to the consumer pool.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is the panic value used when pushing onto a closed queue.
var ErrClosed = errors.New("queue: push on closed queue")

// Queue is an unbounded, thread-safe FIFO with a monotone closed flag.
//
// Push never blocks, so the buffer grows without limit when consumers fall
// behind the producer. Pop blocks until an item is available or the queue
// is both closed and drained.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	closed bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item and wakes one waiting consumer.
// It panics with ErrClosed if the queue was already closed.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		panic(ErrClosed)
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.cond.Signal()
}

// Pop removes and returns the oldest item. The boolean is false only once
// the queue is closed and every buffered item has been handed out.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Re-check after every wake; a Signal does not guarantee an item is left.
	for q.head == len(q.items) && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if q.head == len(q.items) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Reclaim the consumed prefix once the backing array is mostly dead.
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return item, true
}

// Close marks the queue finished and wakes every blocked consumer.
// Calling Close more than once is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
