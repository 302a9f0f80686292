// Package ring provides a fixed-capacity FIFO buffer that never grows after
// construction. Pushing into a full buffer overwrites the oldest entry.
package ring

// Ring is a fixed-capacity insertion-ordered buffer. It is not safe for
// concurrent use; callers provide their own locking.
type Ring[T any] struct {
	items []T
	head  int // next write position
	size  int
}

// New creates a ring holding at most capacity entries. Capacities below 1
// are raised to 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when full. It reports whether an
// entry was evicted.
func (r *Ring[T]) Push(v T) bool {
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
		return false
	}
	return true
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Last returns the newest entry, or false when empty.
func (r *Ring[T]) Last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.index(r.size-1)], true
}

// AppendTo appends the entries oldest first to dst and returns the result.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.size; i++ {
		dst = append(dst, r.items[r.index(i)])
	}
	return dst
}

// All returns a copy of the entries oldest first. The result is never nil.
func (r *Ring[T]) All() []T {
	return r.AppendTo(make([]T, 0, r.size))
}

func (r *Ring[T]) index(i int) int {
	return (r.head - r.size + i + len(r.items)) % len(r.items)
}
