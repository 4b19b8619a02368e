package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	lite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/raizurai/userhub/internal/domain/user"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
)

type UsersRepo struct {
	tx   *sql.Tx
	prom *observability.Prom
}

var _ repo.Users = (*UsersRepo)(nil)

const userColumns = `id, username, email, full_name, hashed_password, is_active, is_superuser, created_at, updated_at`

func IsUniqueViolation(err error) bool {
	var liteErr *lite.Error
	if !errors.As(err, &liteErr) {
		return false
	}

	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateUserRequest, hashedPassword string) (user.User, error) {
	var u user.User
	now := time.Now().UTC()

	err := r.prom.ObserveDB("users.create", func() error {
		return scanUser(r.tx.QueryRowContext(ctx, `
INSERT INTO users (username, email, full_name, hashed_password, is_active, is_superuser, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, 0, ?, ?)
RETURNING `+userColumns,
			req.Username, req.Email, req.FullName, hashedPassword, now, now,
		), &u)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			err = errors.Join(repo.ErrUniqueViolation, err)
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, bool, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return scanUser(r.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id), &u)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, false, nil
		}

		return user.User{}, false, fmt.Errorf("query user: %w", err)
	}

	return u, true, nil
}

func (r *UsersRepo) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	var rows *sql.Rows

	err := r.prom.ObserveDB("users.list", func() error {
		var e error
		rows, e = r.tx.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY id ASC
LIMIT ? OFFSET ?`,
			limit, offset,
		)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0, limit)

	for rows.Next() {
		var u user.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.prom.ObserveDB("users.count", func() error {
		return r.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return total, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.UpdateUserRequest) (user.User, bool, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.FullName.Set {
		// nil Value writes NULL
		sets = append(sets, "full_name = ?")
		args = append(args, patch.FullName.Value)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + userColumns

	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		return scanUser(r.tx.QueryRowContext(ctx, query, args...), &u)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, false, nil
		}

		if IsUniqueViolation(err) {
			err = errors.Join(repo.ErrUniqueViolation, err)
		}

		return user.User{}, false, fmt.Errorf("update user: %w", err)
	}

	return u, true, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64

	err := r.prom.ObserveDB("users.delete", func() error {
		res, e := r.tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if e != nil {
			return e
		}

		affected, e = res.RowsAffected()
		return e
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	return affected > 0, nil
}

func (r *UsersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "users.exists_by_username", `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
}

func (r *UsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "users.exists_by_email", `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
}

func (r *UsersRepo) exists(ctx context.Context, op, query string, arg any) (bool, error) {
	var found bool

	err := r.prom.ObserveDB(op, func() error {
		return r.tx.QueryRowContext(ctx, query, arg).Scan(&found)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return found, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}, u *user.User) error {
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.HashedPassword,
		&u.IsActive,
		&u.IsSuperuser,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return nil
}
