package queue

import "time"

// Option tunes an InMemoryQueue at construction.
type Option func(*InMemoryQueue)

// WithCapacity bounds the buffer; non-positive values keep the default.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithClock replaces the clock used to stamp Job.Enqueued.
func WithClock(now func() time.Time) Option {
	return func(q *InMemoryQueue) {
		if now != nil {
			q.now = now
		}
	}
}
