// Package service wires the store, persistence pipeline, change feed and
// import workflow together and exposes the operations the HTTP API needs.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/kam/internal/adapters/mq/pubsub"
	eventqueue "github.com/okian/kam/internal/adapters/mq/queue"
	workerpool "github.com/okian/kam/internal/adapters/mq/worker"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/adapters/storage"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/dedupe"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// TokenIssuer signs and checks login tokens.
type TokenIssuer interface {
	Issue(p access.Principal) (string, time.Time, error)
	Verify(raw string) (access.Principal, error)
}

// AdminBootstrap describes the administrator created on first start.
type AdminBootstrap struct {
	Email    string
	Username string
	Password string
	Name     string
}

// Service implements the API dependencies for the KAM dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      *repository.Store
	backend    storage.Backend
	changes    *pubsub.Broker[repository.Change]
	jobs       *eventqueue.InMemoryQueue
	saver      *workerpool.Saver
	workerPool *workerpool.Pool
	confirmed  dedupe.Deduper
	tokens     TokenIssuer

	// Configuration
	workerCount   int
	queueSize     int
	previewTTL    time.Duration
	maxPreviews   int
	confirmedKeep int
	sweepInterval time.Duration
	admin         AdminBootstrap

	previewMu sync.Mutex
	previews  map[string]*preview

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
	now    func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend sets the durable backend. The default keeps data in memory.
func WithBackend(b storage.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the persistence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPreviewTTL sets how long an import preview can be confirmed.
func WithPreviewTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.previewTTL = ttl
		}
	}
}

// WithMaxPreviews bounds the number of pending previews.
func WithMaxPreviews(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPreviews = n
		}
	}
}

// WithConfirmedKeep sets how many confirmed preview IDs are remembered.
func WithConfirmedKeep(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.confirmedKeep = n
		}
	}
}

// WithSweepInterval sets how often expired previews are dropped.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithTokenIssuer sets the login token signer.
func WithTokenIssuer(t TokenIssuer) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithAdmin sets the bootstrap administrator.
func WithAdmin(a AdminBootstrap) Option {
	return func(s *Service) {
		s.admin = a
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Mutations made before Start are queued and
// saved once the workers run.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     1024,
		previewTTL:    15 * time.Minute,
		maxPreviews:   64,
		confirmedKeep: 1024,
		sweepInterval: time.Minute,
		previews:      make(map[string]*preview),
		stopCh:        make(chan struct{}),
		logger:        logger.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = storage.NewMemory()
	}

	s.changes = pubsub.NewBroker[repository.Change]()
	s.jobs = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.saver = workerpool.NewSaver(s.backend)
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobs, s.saver,
		workerpool.WithPoolLogger(s.logger.Named("persist")))
	s.confirmed = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.confirmedKeep))
	s.store = repository.New(
		repository.WithPersister(workerpool.NewAsyncPersister(s.jobs, s.saver, s.logger.Named("persist"))),
		repository.WithPublisher(repository.PublisherFunc(func(c repository.Change) { s.changes.Publish(c) })),
		repository.WithLogger(s.logger.Named("store")),
		repository.WithClock(s.now),
	)
	return s
}

// Start loads the store from the backend, creates the bootstrap admin when
// there are no users and starts the background workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting kam service...")

	if err := s.store.Load(ctx, s.backend); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := s.bootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.workerPool.Start(context.WithoutCancel(ctx))
	s.wg.Add(1)
	go s.sweepLoop()

	s.started = true
	s.logger.Info(ctx, "kam service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("previewTTL", s.previewTTL),
	)
	return nil
}

// Stop drains pending saves, closes the change feed and the backend.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping kam service...")

	close(s.stopCh)
	s.wg.Wait()

	var firstErr error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "persistence workers did not drain", logger.Error(err))
		firstErr = err
	}
	s.changes.Close()
	if err := s.backend.Close(); err != nil {
		s.logger.Error(ctx, "closing backend failed", logger.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	s.started = false
	s.logger.Info(ctx, "kam service stopped")
	return firstErr
}

// Subscribe returns a feed of committed changes and its cancel function.
func (s *Service) Subscribe(buffer int) (<-chan repository.Change, func()) {
	return s.changes.Subscribe(buffer)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	snap := s.store.Snapshot()
	collections := make(map[string]int, len(model.Collections))
	for _, c := range model.Collections {
		collections[string(c)] = snap.Len(c)
	}

	queueLen := s.jobs.Len()
	metrics.UpdateQueueSize(queueLen)

	return map[string]interface{}{
		"started":         started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"queueLength":     queueLen,
		"storeVersion":    s.store.Version(),
		"collections":     collections,
		"pendingPreviews": s.pendingPreviews(),
		"confirmed":       s.confirmed.Size(),
		"subscribers":     s.changes.Subscribers(),
	}
}

// Store exposes the underlying store for read-only helpers and tests.
func (s *Service) Store() *repository.Store {
	return s.store
}

func (s *Service) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.sweepPreviews(); n > 0 {
				s.logger.Debug(context.Background(), "expired import previews dropped", logger.Int("count", n))
			}
		}
	}
}
