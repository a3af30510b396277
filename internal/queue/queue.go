package queue

import "sync"

// Queue is an unbounded thread-safe FIFO of recorded rows. The simulation
// goroutine pushes in tick order and a storage writer drains it; rows that
// fail to persist go back to the front so the order survives a retry.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends rows at the back.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Requeue puts rows back at the front, ahead of anything pushed since
// they were drained.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
	q.mu.Unlock()
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns up to max rows from the front.
// A max of zero or less drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max >= len(q.items) {
		out := q.items
		q.items = nil
		return out
	}
	out := make([]T, max)
	copy(out, q.items[:max])
	q.items = append(q.items[:0], q.items[max:]...)
	return out
}
