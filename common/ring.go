package common

import (
	"sync"
)

// RingBuffer is a fixed-size, mutex-guarded FIFO which overwrites its oldest
// element once full.
// https://medium.com/@nathanbcrocker/a-practical-guide-to-implementing-a-generic-ring-buffer-in-go-866d27ec1a05
type RingBuffer[T any] struct {
	buffer []T
	size   int
	mu     sync.Mutex
	write  int
	count  int
}

// NewRingBuffer creates a new ring buffer with a fixed size.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Add inserts a new element into the buffer, overwriting the oldest if full.
func (rb *RingBuffer[T]) Add(value T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer[rb.write] = value
	rb.write = (rb.write + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	}
}

func (rb *RingBuffer[T]) at(i int) T {
	return rb.buffer[(rb.write+rb.size-rb.count+i)%rb.size]
}

// Get returns the contents of the buffer in FIFO order.
func (rb *RingBuffer[T]) Get() []T {
	return rb.Tail(rb.size)
}

// Tail returns the last (last in) n elements in the buffer, oldest first.
func (rb *RingBuffer[T]) Tail(n int) []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if n > rb.count {
		n = rb.count
	}
	result := make([]T, 0, n)
	for i := rb.count - n; i < rb.count; i++ {
		result = append(result, rb.at(i))
	}
	return result
}

// Len returns the current number of elements in the buffer.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Last returns the most recently added element, and false when empty.
func (rb *RingBuffer[T]) Last() (T, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	var zero T
	if rb.count == 0 {
		return zero, false
	}
	return rb.buffer[(rb.write+rb.size-1)%rb.size], true
}

func (rb *RingBuffer[T]) Scan(fn func(T) bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := 0; i < rb.count; i++ {
		if !fn(rb.at(i)) {
			break
		}
	}
}

// Reset empties the buffer.
func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.buffer)
	rb.write, rb.count = 0, 0
}
