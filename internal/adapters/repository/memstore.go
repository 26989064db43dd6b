package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

// state pairs a published snapshot with the mutation counter that produced
// it.
type state struct {
	snap    *model.Snapshot
	version uint64
}

// Store is the single source of truth for every collection.
//
// Readers load the current snapshot without locking and never see a partial
// update. Writers serialize on mu, build a new snapshot that shares every
// untouched slice with the old one, publish it, then hand the changed
// collection to the persister and announce the change.
type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[state]

	persister Persister
	publisher Publisher
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

// New returns an empty store seeded with the default complaint tags.
func New(opts ...Option) *Store {
	s := &Store{
		persister: nopPersister{},
		publisher: nopPublisher{},
		log:       logger.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(&state{snap: withDefaults(&model.Snapshot{})})
	return s
}

// Snapshot returns the current state. Callers must not modify it.
func (s *Store) Snapshot() *model.Snapshot {
	return s.state.Load().snap
}

// Version returns the number of mutations committed so far.
func (s *Store) Version() uint64 {
	return s.state.Load().version
}

// Load replaces the whole state with what l returns. Nothing is persisted or
// published. Collections the backend has never saved start empty, except
// complaint tags which fall back to the defaults.
func (s *Store) Load(ctx context.Context, l Loader) error {
	snap, err := l.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		snap = &model.Snapshot{}
	}
	snap = withDefaults(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Store(&state{snap: snap, version: s.state.Load().version})
	for _, c := range model.Collections {
		metrics.UpdateCollectionSize(string(c), snap.Len(c))
	}
	s.log.Info(ctx, "store loaded",
		logger.Int("records", len(snap.Records)),
		logger.Int("calls", len(snap.Calls)),
		logger.Int("queries", len(snap.Queries)),
		logger.Int("users", len(snap.Users)))
	return nil
}

// Records returns the current performance records.
func (s *Store) Records() []model.PerformanceRecord {
	return s.Snapshot().Records
}

// ComplaintTags returns the current complaint tag names in order.
func (s *Store) ComplaintTags() []string {
	return s.Snapshot().ComplaintTags
}

// mutate runs fn on a shallow copy of the current snapshot and commits the
// result. fn replaces whole slices on next; it must never write into a slice
// it received. key identifies the touched item in the change notification.
func (s *Store) mutate(ctx context.Context, c model.Collection, action model.Action, fn func(next *model.Snapshot) (key string, err error)) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreMutationLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	next := *cur.snap
	key, err := fn(&next)
	if err != nil {
		metrics.RecordErrorByComponent("repository", errorType(err))
		return err
	}

	st := &state{snap: &next, version: cur.version + 1}
	s.state.Store(st)
	metrics.RecordStoreMutation(string(c), string(action))
	metrics.UpdateCollectionSize(string(c), next.Len(c))

	if err := s.persister.Save(ctx, c, st.snap); err != nil {
		// The in-memory state stays authoritative; the next save of c
		// carries this mutation too.
		s.log.Error(ctx, "persist collection",
			logger.String("collection", string(c)),
			logger.Error(err))
		metrics.RecordErrorByComponent("repository", "persist_failed")
	}

	s.publisher.Publish(Change{
		Collection: c,
		Action:     action,
		Key:        key,
		Version:    st.version,
		Timestamp:  s.now().UTC(),
	})
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	}
	return "unknown"
}

func withDefaults(snap *model.Snapshot) *model.Snapshot {
	if snap.ComplaintTags == nil {
		snap.ComplaintTags = slices.Clone(model.DefaultComplaintTags)
	}
	return snap
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func equalFold(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
