// Package storage provides the durable backends behind the store: an
// in-memory stand-in, JSON files, SQLite and PostgreSQL.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/config"
	"github.com/okian/kam/internal/domain/model"
)

// Sentinel kinds for storage errors.
var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownDriver     = errors.New("unknown storage driver")
)

// Backend saves and restores collections.
type Backend interface {
	repository.Persister
	repository.Loader
	Close() error
}

// Open returns the backend selected by cfg.Driver, migrated and ready.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverFile:
		return NewFile(cfg.DataDir)
	case config.DriverSQLite:
		st, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := NewPostgres(ctx, cfg.PostgresDSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// encode renders collection c of snap as a JSON document.
func encode(snap *model.Snapshot, c model.Collection) ([]byte, error) {
	part := snap.Part(c)
	if part == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return json.Marshal(part)
}

// decode fills collection c of snap from a JSON document.
func decode(snap *model.Snapshot, c model.Collection, data []byte) error {
	dst := snap.PartPtr(c)
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}
	return json.Unmarshal(data, dst)
}
