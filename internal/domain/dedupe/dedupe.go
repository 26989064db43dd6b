// Package dedupe tracks identifiers that must be acted on at most once, such
// as import previews that have already been confirmed.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen identifiers.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not. The check and the insert are atomic.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so it can be acted on again, e.g. after the action
	// it guarded failed.
	Unrecord(ctx context.Context, id string)

	// Contains reports whether id is recorded without recording it.
	Contains(ctx context.Context, id string) bool

	Size() int64
}

type slot struct {
	id   string
	live bool
}

// memoryDeduper keeps identifiers in a map. When bounded it also keeps a ring
// of insertion slots and overwrites the oldest slot once the ring is full.
type memoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int
	ring    []slot
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{maxSize: 50000}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.ring == nil {
		d.seen[id] = -1
		d.size.Add(1)
		return false
	}

	old := d.ring[d.next]
	if old.live {
		delete(d.seen, old.id)
		d.size.Add(-1)
	}
	d.ring[d.next] = slot{id: id, live: true}
	d.seen[id] = d.next
	d.next = (d.next + 1) % len(d.ring)
	d.size.Add(1)
	return false
}

func (d *memoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if i >= 0 {
		d.ring[i].live = false
	}
	d.size.Add(-1)
}

func (d *memoryDeduper) Contains(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

func (d *memoryDeduper) Size() int64 {
	return d.size.Load()
}
