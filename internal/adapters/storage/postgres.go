package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/okian/kam/internal/domain/model"
)

// Pool is the subset of pgxpool.Pool the Postgres backend uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Postgres stores every collection in its own table. A save rewrites the
// whole table inside one transaction; position keeps the in-memory order.
type Postgres struct {
	pool Pool
}

// NewPostgres connects a pool to connString.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS excel_data (
	position      INTEGER NOT NULL,
	user_id       TEXT NOT NULL,
	date          TEXT NOT NULL,
	name          TEXT NOT NULL,
	poc           TEXT NOT NULL,
	potential     DOUBLE PRECISION NOT NULL,
	last_30_days  DOUBLE PRECISION NOT NULL,
	pro_rated_ach DOUBLE PRECISION NOT NULL,
	short_fall    DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS call_records (
	position      INTEGER NOT NULL,
	user_id       TEXT NOT NULL,
	status        TEXT NOT NULL,
	comment       TEXT NOT NULL DEFAULT '',
	complaint_tag TEXT NOT NULL DEFAULT '',
	timestamp     TIMESTAMPTZ NOT NULL,
	created_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_queries (
	position      INTEGER NOT NULL,
	id            TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	user_name     TEXT NOT NULL DEFAULT '',
	complaint_tag TEXT NOT NULL DEFAULT '',
	comment       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	created_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS retailer_tags (
	position   INTEGER NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL DEFAULT '',
	retailers  TEXT[] NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	created_by TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS complaint_tags (
	position INTEGER NOT NULL,
	name     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branch_accounts (
	position      INTEGER NOT NULL,
	id            TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	department    TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL,
	branch        TEXT NOT NULL DEFAULT '',
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	created_by    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	position      INTEGER NOT NULL,
	id            TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	username      TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	poc           TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS collection_state (
	key   TEXT PRIMARY KEY,
	saved TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *Postgres) Save(ctx context.Context, c model.Collection, snap *model.Snapshot) error {
	t, ok := tables[c]
	if !ok {
		return eris.Wrapf(ErrUnknownCollection, "postgres: save %s", c)
	}
	rows := t.rows(snap)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin %s", t.name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM "+t.name); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", t.name)
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "postgres: copy into %s", t.name)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO collection_state (key, saved) VALUES ($1, now())
		 ON CONFLICT (key) DO UPDATE SET saved = excluded.saved`,
		string(c),
	); err != nil {
		return eris.Wrapf(err, "postgres: mark %s", c)
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit %s", t.name)
}

// Load reads every collection that has been saved at least once. Collections
// that were never saved stay nil so the store can apply its defaults.
func (p *Postgres) Load(ctx context.Context) (*model.Snapshot, error) {
	saved, err := p.savedCollections(ctx)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{}
	for _, c := range model.Collections {
		if _, ok := saved[c]; !ok {
			continue
		}
		t := tables[c]
		rows, err := p.pool.Query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY position", t.selectList(), t.name))
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: query %s", t.name)
		}
		err = t.scan(rows, snap)
		rows.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", t.name)
		}
	}
	return snap, nil
}

func (p *Postgres) savedCollections(ctx context.Context) (map[model.Collection]struct{}, error) {
	rows, err := p.pool.Query(ctx, `SELECT key FROM collection_state`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query collection_state")
	}
	defer rows.Close()

	out := make(map[model.Collection]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "postgres: scan collection_state")
		}
		out[model.Collection(key)] = struct{}{}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate collection_state")
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
