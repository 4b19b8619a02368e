package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
)

type Store struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

var _ repo.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{pool: pool, prom: prom}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, users repo.Users) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// no-op once committed
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = fn(ctx, &UsersRepo{q: tx, prom: s.prom})
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return
}

// Migrate creates the users table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Kind() string {
	return "postgres"
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	username        VARCHAR(50)  NOT NULL,
	email           VARCHAR(100) NOT NULL,
	full_name       VARCHAR(100),
	hashed_password VARCHAR(255) NOT NULL,
	is_active       BOOLEAN      NOT NULL DEFAULT TRUE,
	is_superuser    BOOLEAN      NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email),
	CONSTRAINT users_updated_after_created CHECK (updated_at >= created_at)
);
`
