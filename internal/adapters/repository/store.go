// Package repository holds the authoritative in-memory state of every
// collection and mirrors each mutation to a durable backend.
package repository

import (
	"context"
	"time"

	"github.com/okian/kam/internal/domain/model"
)

// Persister durably saves collection c as it appears in snap.
type Persister interface {
	Save(ctx context.Context, c model.Collection, snap *model.Snapshot) error
}

// Loader reads the last persisted state of every collection.
type Loader interface {
	Load(ctx context.Context) (*model.Snapshot, error)
}

// Publisher receives a Change after every committed mutation. Publish must
// not block.
type Publisher interface {
	Publish(Change)
}

// Change describes one committed mutation.
type Change struct {
	Collection model.Collection `json:"collection"`
	Action     model.Action     `json:"action"`
	Key        string           `json:"key,omitempty"`
	Version    uint64           `json:"version"`
	Timestamp  time.Time        `json:"timestamp"`
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, c model.Collection, snap *model.Snapshot) error

// Save calls f.
func (f PersisterFunc) Save(ctx context.Context, c model.Collection, snap *model.Snapshot) error {
	return f(ctx, c, snap)
}

type nopPersister struct{}

func (nopPersister) Save(context.Context, model.Collection, *model.Snapshot) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(Change) {}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Change)

// Publish calls f.
func (f PublisherFunc) Publish(c Change) { f(c) }
