package queue

import "sync"

// DefaultCapacity is the size of entity action queues.
const DefaultCapacity = 10

// Ring is a fixed-capacity FIFO that evicts its oldest item when a push
// would overflow it. It is safe for one producer and one consumer on
// different goroutines.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	count int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends item, dropping the oldest item if the ring is full.
// It reports whether an item was dropped.
func (r *Ring[T]) Push(item T) (dropped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == len(r.buf) {
		var zero T
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
		r.count--
		dropped = true
	}
	r.buf[(r.head+r.count)%len(r.buf)] = item
	r.count++
	return dropped
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	item := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return item, true
}

// Drain removes and returns every item, oldest first.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snapshot()
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.count = 0, 0
	return out
}

// Items returns a copy of the queued items, oldest first.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Ring[T]) snapshot() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring's capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Clear removes every item.
func (r *Ring[T]) Clear() {
	r.Drain()
}
