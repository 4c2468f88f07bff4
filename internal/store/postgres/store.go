// Package postgres provides the Postgres-backed watch store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealwatch/pricewatch/internal/watch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for watch rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists watch requests in Postgres. The expected schema is:
//
//	CREATE TABLE watches (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    url TEXT NOT NULL,
//	    target_price DOUBLE PRECISION NOT NULL,
//	    notify_destination TEXT NOT NULL,
//	    title TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	pool  dbPool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "watches"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "watches"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create inserts a watch request and returns it with the assigned identity.
func (s *Store) Create(ctx context.Context, req watch.Request) (watch.Request, error) {
	if err := req.Validate(); err != nil {
		return watch.Request{}, fmt.Errorf("validate watch request: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, target_price, notify_destination, title)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`, s.table)

	row := s.pool.QueryRow(ctx, query, req.URL, req.TargetPrice, req.NotifyDestination, req.Title)
	if err := row.Scan(&req.ID, &req.CreatedAt); err != nil {
		return watch.Request{}, fmt.Errorf("insert watch request: %w", err)
	}
	return req, nil
}

// ListAll returns every active watch request.
func (s *Store) ListAll(ctx context.Context) ([]watch.Request, error) {
	query := fmt.Sprintf(`
SELECT id, url, target_price, notify_destination, title, created_at
FROM %s
ORDER BY created_at`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list watch requests: %w", err)
	}
	defer rows.Close()

	var requests []watch.Request
	for rows.Next() {
		var req watch.Request
		if err := rows.Scan(
			&req.ID,
			&req.URL,
			&req.TargetPrice,
			&req.NotifyDestination,
			&req.Title,
			&req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan watch request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch requests: %w", err)
	}
	return requests, nil
}

// DeleteByID removes a watch request. A missing id is a benign no-op so that
// removal racing another actor stays safe.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete watch request: %w", err)
	}
	return nil
}
