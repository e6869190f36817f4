// Package channel carries progress values from a producer that must never
// block to a consumer that only cares about the most recent ones.
package channel

import (
	"sync"
	"sync/atomic"
)

// Lossy is a bounded channel that drops instead of blocking. Every value
// that did not reach the consumer is counted.
type Lossy[T any] struct {
	mu      sync.Mutex
	ch      chan T
	closed  bool
	dropped atomic.Uint64
}

// NewLossy returns a channel buffering up to size values. Sizes below one
// are raised to one.
func NewLossy[T any](size int) *Lossy[T] {
	if size < 1 {
		size = 1
	}
	return &Lossy[T]{ch: make(chan T, size)}
}

// TrySend queues v unless the buffer is full or the channel is closed.
func (l *Lossy[T]) TrySend(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.dropped.Add(1)
		return false
	}
	select {
	case l.ch <- v:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// Put queues v, evicting the oldest pending values until it fits. It only
// fails on a closed channel.
func (l *Lossy[T]) Put(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.dropped.Add(1)
		return false
	}
	for {
		select {
		case l.ch <- v:
			return true
		default:
		}
		select {
		case <-l.ch:
			l.dropped.Add(1)
		default:
		}
	}
}

// Receive returns the consumer side. It is closed by Close once the
// pending values have been read.
func (l *Lossy[T]) Receive() <-chan T {
	return l.ch
}

// Len returns the number of pending values.
func (l *Lossy[T]) Len() int {
	return len(l.ch)
}

// Dropped returns how many values were discarded or evicted.
func (l *Lossy[T]) Dropped() uint64 {
	return l.dropped.Load()
}

// Close closes the consumer side. Later sends are dropped.
func (l *Lossy[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}
