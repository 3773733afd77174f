// Package postgres persists the monitor state in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/domain"
	"github.com/hamed0406/servermonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitor_servers (
  id       TEXT PRIMARY KEY,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS monitor_settings (
  singleton      BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
  check_interval INTEGER NOT NULL,
  max_failures   INTEGER NOT NULL,
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Load(ctx context.Context) (domain.State, error) {
	st := domain.DefaultState()

	rows, err := s.pool.Query(ctx, `SELECT id FROM monitor_servers ORDER BY position`)
	if err != nil {
		return st, fmt.Errorf("list servers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return st, fmt.Errorf("scan servers: %w", err)
	}
	st.Servers = append(st.Servers, ids...)

	err = s.pool.QueryRow(ctx,
		`SELECT check_interval, max_failures FROM monitor_settings WHERE singleton`,
	).Scan(&st.CheckInterval, &st.MaxFailures)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultState(), fmt.Errorf("load settings: %w", err)
	}
	cfg := st.Config()
	st.CheckInterval, st.MaxFailures = cfg.CheckIntervalSeconds, cfg.MaxConsecutiveFailures
	return st, nil
}

func (s *Store) Save(ctx context.Context, st domain.State) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM monitor_servers`); err != nil {
			return fmt.Errorf("clear servers: %w", err)
		}
		if len(st.Servers) > 0 {
			rows := make([][]any, len(st.Servers))
			for i, id := range st.Servers {
				rows[i] = []any{id, i}
			}
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"monitor_servers"},
				[]string{"id", "position"},
				pgx.CopyFromRows(rows),
			); err != nil {
				return fmt.Errorf("insert servers: %w", err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO monitor_settings (singleton, check_interval, max_failures, updated_at)
			 VALUES (TRUE, $1, $2, now())
			 ON CONFLICT (singleton) DO UPDATE
			 SET check_interval = EXCLUDED.check_interval,
			     max_failures   = EXCLUDED.max_failures,
			     updated_at     = EXCLUDED.updated_at`,
			st.CheckInterval, st.MaxFailures); err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}
		s.log.Debug("state_saved", zap.Int("servers", len(st.Servers)))
		return nil
	})
}
