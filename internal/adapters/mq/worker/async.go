package worker

import (
	"context"
	"sync/atomic"

	"github.com/okian/kam/internal/adapters/mq/queue"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
)

// Enqueuer is the producer side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, j queue.Job) bool
}

// AsyncPersister queues each save for the worker pool. When the queue
// refuses a job it saves synchronously instead, so a mutation is never left
// unpersisted.
type AsyncPersister struct {
	queue   Enqueuer
	saver   *Saver
	version atomic.Uint64
	logger  logger.Logger
}

// NewAsyncPersister returns a persister feeding q and falling back to saver.
func NewAsyncPersister(q Enqueuer, saver *Saver, l logger.Logger) *AsyncPersister {
	if l == nil {
		l = logger.Nop()
	}
	return &AsyncPersister{queue: q, saver: saver, logger: l}
}

// Save implements repository.Persister. Calls must be serialized by the
// caller so versions follow mutation order.
func (p *AsyncPersister) Save(ctx context.Context, c model.Collection, snap *model.Snapshot) error {
	j := queue.Job{Collection: c, Snapshot: snap, Version: p.version.Add(1)}
	p.saver.announce(c, j.Version)
	if p.queue.Enqueue(ctx, j) {
		return nil
	}

	p.logger.Warn(ctx, "persistence queue refused job, saving inline",
		logger.String("collection", string(c)))
	return p.saver.Save(context.WithoutCancel(ctx), j)
}
