// Package queue buffers rows between the snapshot sink and the batched
// database writer.
package queue

import (
	"sync"
)

// Queue is a FIFO of rows waiting to be written. Producers push one tick
// at a time; the writer drains everything queued so far in one batch.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends rows in order.
func (q *Queue[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Drain removes and returns every queued row. The returned slice is owned by
// the caller.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Requeue puts a batch that failed to write back in front of the rows queued
// since it was drained, so tick order is kept for the retry.
func (q *Queue[T]) Requeue(batch []T) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]T, 0, len(batch)+len(q.items))
	items = append(items, batch...)
	q.items = append(items, q.items...)
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}
