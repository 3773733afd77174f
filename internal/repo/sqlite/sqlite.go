// Package sqlite persists the monitor state in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS monitor_servers (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS monitor_settings (
	singleton      INTEGER PRIMARY KEY CHECK (singleton = 1),
	check_interval INTEGER NOT NULL,
	max_failures   INTEGER NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	st := domain.DefaultState()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM monitor_servers ORDER BY position`)
	if err != nil {
		return st, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.DefaultState(), fmt.Errorf("scan server: %w", err)
		}
		st.Servers = append(st.Servers, id)
	}
	if err := rows.Err(); err != nil {
		return domain.DefaultState(), err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT check_interval, max_failures FROM monitor_settings WHERE singleton = 1`,
	).Scan(&st.CheckInterval, &st.MaxFailures)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultState(), fmt.Errorf("load settings: %w", err)
	}
	cfg := st.Config()
	st.CheckInterval, st.MaxFailures = cfg.CheckIntervalSeconds, cfg.MaxConsecutiveFailures
	return st, nil
}

// Save replaces the stored membership and settings in one transaction.
func (s *Store) Save(ctx context.Context, st domain.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monitor_servers`); err != nil {
		return fmt.Errorf("clear servers: %w", err)
	}
	for i, id := range st.Servers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO monitor_servers (id, position) VALUES (?, ?)`, id, i); err != nil {
			return fmt.Errorf("insert server %q: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO monitor_settings (singleton, check_interval, max_failures)
		 VALUES (1, ?, ?)
		 ON CONFLICT (singleton) DO UPDATE
		 SET check_interval = excluded.check_interval, max_failures = excluded.max_failures`,
		st.CheckInterval, st.MaxFailures); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return tx.Commit()
}
