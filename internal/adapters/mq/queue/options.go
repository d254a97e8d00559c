package queue

// Option configures an InMemoryQueue at construction.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of activities waiting for a worker. Once
// the bound is reached Enqueue reports ErrFull and the caller applies the
// activity inline. Values below one keep the default of 10000.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n >= 1 {
			q.capacity = n
		}
	}
}
