// Package repo declares the persistence contract for users. Implementations
// live in the postgres and sqlite subpackages.
package repo

import (
	"context"
	"errors"

	"github.com/raizurai/userhub/internal/domain/user"
)

// ErrUniqueViolation marks errors caused by a unique constraint
// (username or email) so callers can tell a lost race from a storage failure.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Users issues queries against a single open transaction. None of the
// methods commit.
type Users interface {
	Create(ctx context.Context, req user.CreateUserRequest, hashedPassword string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, bool, error)
	List(ctx context.Context, offset, limit int) ([]user.User, error)
	Count(ctx context.Context) (int, error)
	// Update applies the non-nil fields of patch and refreshes updated_at in a
	// single statement. found is false when no row has that id.
	Update(ctx context.Context, id int64, patch user.UpdateUserRequest) (u user.User, found bool, err error)
	Delete(ctx context.Context, id int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Store owns the connection pool and hands out transactions.
type Store interface {
	// WithinTx runs fn in a transaction that is committed when fn returns nil
	// and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, users Users) error) error
	Ping(ctx context.Context) error
	// Kind names the backing database, e.g. "postgres".
	Kind() string
	Close()
}
