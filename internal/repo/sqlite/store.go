package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
)

type Store struct {
	db   *sql.DB
	prom *observability.Prom
}

var _ repo.Store = (*Store)(nil)

// Open opens (or creates) the sqlite database at path. ":memory:" gives a
// private in-memory database that lives as long as the Store.
func Open(path string, prom *observability.Prom) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// go-sqlite does not support concurrent writers; one connection also keeps
	// an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &Store{db: db, prom: prom}, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, users repo.Users) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// no-op once committed
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &UsersRepo{tx: tx, prom: s.prom}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Migrate creates the users table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Kind() string {
	return "sqlite"
}

func (s *Store) Close() {
	_ = s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        VARCHAR(50)  NOT NULL UNIQUE,
	email           VARCHAR(100) NOT NULL UNIQUE,
	full_name       VARCHAR(100),
	hashed_password VARCHAR(255) NOT NULL,
	is_active       BOOLEAN      NOT NULL DEFAULT 1,
	is_superuser    BOOLEAN      NOT NULL DEFAULT 0,
	created_at      DATETIME     NOT NULL,
	updated_at      DATETIME     NOT NULL
);
`
