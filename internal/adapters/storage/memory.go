package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/kam/internal/domain/model"
)

// Memory keeps the last saved JSON document of each collection in process.
// It is used for ephemeral runs and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[model.Collection][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{docs: make(map[model.Collection][]byte)}
}

func (m *Memory) Save(_ context.Context, c model.Collection, snap *model.Snapshot) error {
	doc, err := encode(snap, c)
	if err != nil {
		return fmt.Errorf("memory: save %s: %w", c, err)
	}
	m.mu.Lock()
	m.docs[c] = doc
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &model.Snapshot{}
	for c, doc := range m.docs {
		if err := decode(snap, c, doc); err != nil {
			return nil, fmt.Errorf("memory: load %s: %w", c, err)
		}
	}
	return snap, nil
}

// Saved reports whether collection c has been saved at least once.
func (m *Memory) Saved(c model.Collection) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[c]
	return ok
}

func (m *Memory) Close() error { return nil }
