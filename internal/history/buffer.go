// Package history provides bounded FIFO buffers for recent chat and win
// entries. Buffers keep only the most recent entries; the oldest are
// silently discarded once capacity is exceeded.
package history

// Buffer is a fixed-capacity FIFO of the most recent entries, in insertion
// order. It is not safe for concurrent use; the hub actor owns all buffers.
type Buffer[T any] struct {
	entries []T
	cap     int
}

// NewBuffer creates a buffer retaining at most capacity entries.
func NewBuffer[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{
		entries: make([]T, 0, capacity),
		cap:     capacity,
	}
}

// Append adds an entry at the tail, evicting from the head if the buffer
// exceeds its capacity.
func (b *Buffer[T]) Append(entry T) {
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.cap {
		overflow := len(b.entries) - b.cap
		b.entries = append(b.entries[:0], b.entries[overflow:]...)
	}
}

// Snapshot returns the most recent n entries in chronological order.
// The returned slice is a copy and never nil.
func (b *Buffer[T]) Snapshot(n int) []T {
	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]T, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}

// TrimTo shrinks the buffer to at most n entries, keeping the most recent.
// This is the aggressive memory-pressure eviction path, distinct from the
// ordinary cap-triggered one; it does not change the buffer's capacity.
func (b *Buffer[T]) TrimTo(n int) {
	if n < 0 {
		n = 0
	}
	if len(b.entries) <= n {
		return
	}
	overflow := len(b.entries) - n
	b.entries = append(b.entries[:0], b.entries[overflow:]...)
}

// Len returns the current number of entries.
func (b *Buffer[T]) Len() int {
	return len(b.entries)
}

// Cap returns the configured maximum length.
func (b *Buffer[T]) Cap() int {
	return b.cap
}
