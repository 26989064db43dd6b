package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/okian/kam/internal/domain/model"
)

// SQLite keeps one JSON document per collection in a key/value table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Save(ctx context.Context, c model.Collection, snap *model.Snapshot) error {
	doc, err := encode(snap, c)
	if err != nil {
		return eris.Wrapf(err, "sqlite: encode %s", c)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(c), string(doc), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save %s", c)
}

func (s *SQLite) Load(ctx context.Context) (*model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, doc FROM collections`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query collections")
	}
	defer rows.Close() //nolint:errcheck

	snap := &model.Snapshot{}
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan collection")
		}
		c := model.Collection(key)
		if !c.Valid() {
			continue
		}
		if err := decode(snap, c, []byte(doc)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode %s", key)
		}
	}
	return snap, eris.Wrap(rows.Err(), "sqlite: iterate collections")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
