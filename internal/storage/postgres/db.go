// Package postgres implements storage.AuditStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pgx-contrib/pgxotel"
	"github.com/pressly/goose/v3"

	"github.com/eugener/ceptracker/internal/storage"
)

var _ storage.AuditStore = (*Store)(nil)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements storage.AuditStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, runs migrations, and returns a Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
		Name: "ceptracker",
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// runMigrations applies embedded migrations through a database/sql view
// of the pool, which is what goose expects.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub fs: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	for _, r := range results {
		slog.LogAttrs(ctx, slog.LevelInfo, "migration applied",
			slog.String("store", "postgres"),
			slog.String("source", r.Source.Path),
			slog.Int64("version", r.Source.Version),
		)
	}
	return err
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pool connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
