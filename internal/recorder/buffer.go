package recorder

import (
	"sync"
)

// RingBuffer is a thread-safe FIFO that doubles its capacity when 70% full,
// up to a fixed limit. Once the limit is reached the oldest item is dropped
// for every new one.
type RingBuffer[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	limit    int
	closed   bool

	// Stats
	totalPushed  int64
	totalDrained int64
	dropped      int64
	resizeCount  int
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count        int
	Capacity     int
	Limit        int
	TotalPushed  int64
	TotalDrained int64
	Dropped      int64
	ResizeCount  int
}

// NewRingBuffer creates a buffer holding at most limit items.
func NewRingBuffer[T any](initialCapacity, limit int) *RingBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if limit < initialCapacity {
		limit = initialCapacity
	}
	return &RingBuffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		limit:    limit,
	}
}

// Push appends an item and returns the resulting length and whether the
// oldest item was evicted to make room. ok is false if the buffer is closed.
func (b *RingBuffer[T]) Push(item T) (n int, evicted, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b.count, false, false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && b.capacity < b.limit {
		b.grow()
	}

	if b.count == b.capacity {
		// At the limit: overwrite the oldest.
		var zero T
		b.buf[b.head] = zero
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped++
		evicted = true
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalPushed++

	return b.count, evicted, true
}

// Drain removes up to max items (all if max <= 0) in FIFO order.
func (b *RingBuffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]T, n)
	var zero T
	for i := 0; i < n; i++ {
		out[i] = b.buf[b.head]
		b.buf[b.head] = zero
		b.head = (b.head + 1) % b.capacity
	}
	b.count -= n
	b.totalDrained += int64(n)

	return out
}

// Close rejects further pushes. Buffered items can still be drained.
func (b *RingBuffer[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Len returns the number of buffered items.
func (b *RingBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *RingBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:        b.count,
		Capacity:     b.capacity,
		Limit:        b.limit,
		TotalPushed:  b.totalPushed,
		TotalDrained: b.totalDrained,
		Dropped:      b.dropped,
		ResizeCount:  b.resizeCount,
	}
}

// grow doubles the capacity, capped at limit. Must be called with lock held.
func (b *RingBuffer[T]) grow() {
	newCapacity := b.capacity * 2
	if newCapacity > b.limit {
		newCapacity = b.limit
	}
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count % newCapacity
	b.capacity = newCapacity
	b.resizeCount++
}
