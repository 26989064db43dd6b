// Package worker drains persistence jobs from the queue and writes them to
// the durable backend.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/kam/internal/adapters/mq/queue"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// doneMarker is implemented by queues that track dequeue metrics.
type doneMarker interface {
	Done(queue.Job)
}

// Worker processes jobs until the queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker saves jobs received from a Queue.
type InMemoryWorker struct {
	queue Queue
	saver *Saver
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q and writing through saver.
func NewInMemoryWorker(q Queue, saver *Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		saver:    saver,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the queue is closed and drained, ctx is done, or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if m, ok := w.queue.(doneMarker); ok {
				m.Done(j)
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.saver.Save(ctx, j); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "persist job failed",
			logger.String("collection", string(j.Collection)),
			logger.Int64("version", int64(j.Version)),
			logger.Error(err))
	}
}
