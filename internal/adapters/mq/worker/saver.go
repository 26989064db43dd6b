package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/kam/internal/adapters/mq/queue"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/metrics"
)

// collectionState serializes saves of one collection and remembers which
// versions were saved and announced.
type collectionState struct {
	mu     sync.Mutex
	saved  uint64
	latest uint64
}

// Saver writes jobs to the durable backend, one collection at a time, and
// drops jobs that a newer job for the same collection supersedes.
type Saver struct {
	backend repository.Persister

	mu     sync.Mutex
	states map[model.Collection]*collectionState
}

// NewSaver wraps backend.
func NewSaver(backend repository.Persister) *Saver {
	return &Saver{backend: backend, states: make(map[model.Collection]*collectionState)}
}

func (s *Saver) state(c model.Collection) *collectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[c]
	if !ok {
		st = &collectionState{}
		s.states[c] = st
	}
	return st
}

// announce records that version v of c is about to be queued.
func (s *Saver) announce(c model.Collection, v uint64) {
	st := s.state(c)
	st.mu.Lock()
	if v > st.latest {
		st.latest = v
	}
	st.mu.Unlock()
}

// Save persists j unless a newer version of the collection is already saved
// or queued.
func (s *Saver) Save(ctx context.Context, j queue.Job) error {
	st := s.state(j.Collection)
	st.mu.Lock()
	defer st.mu.Unlock()

	if j.Version <= st.saved || j.Version < st.latest {
		metrics.RecordPersistCoalesced()
		return nil
	}

	start := time.Now()
	err := s.backend.Save(ctx, j.Collection, j.Snapshot)
	metrics.RecordPersistLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordPersist(string(j.Collection), "error")
		metrics.RecordErrorByComponent("worker", "persist_failed")
		return fmt.Errorf("save %s v%d: %w", j.Collection, j.Version, err)
	}
	st.saved = j.Version
	metrics.RecordPersist(string(j.Collection), "ok")
	return nil
}

// Saved returns the last saved version of c.
func (s *Saver) Saved(c model.Collection) uint64 {
	st := s.state(c)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.saved
}
