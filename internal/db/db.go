// Package db opens the configured repo.Store and prepares its schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raizurai/userhub/internal/config"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
	"github.com/raizurai/userhub/internal/repo/postgres"
	"github.com/raizurai/userhub/internal/repo/sqlite"
)

const connectTimeout = 5 * time.Second

type migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects to the database named by cfg.Type and, when AutoMigrate is
// set, creates the users table if it is missing.
func Open(ctx context.Context, cfg config.DatabaseConfig, prom *observability.Prom) (repo.Store, error) {
	var (
		store repo.Store
		err   error
	)

	switch cfg.Type {
	case "postgres":
		store, err = openPostgres(ctx, cfg, prom)
	case "sqlite":
		store, err = sqlite.Open(cfg.SQLiteFile, prom)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		if err := store.(migrator).Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate %s: %w", store.Kind(), err)
		}
	}

	return store, nil
}

func NewPool(ctx context.Context, dbURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, err
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, prom *observability.Prom) (*postgres.Store, error) {
	pool, err := NewPool(ctx, cfg.PostgresURL(), cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return postgres.NewStore(pool, prom), nil
}
