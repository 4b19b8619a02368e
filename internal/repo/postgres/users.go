package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/raizurai/userhub/internal/domain/user"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/repo"
)

// querier is the subset of pgx.Tx the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UsersRepo struct {
	q    querier
	prom *observability.Prom
}

var _ repo.Users = (*UsersRepo)(nil)

const userColumns = `id, username, email, full_name, hashed_password, is_active, is_superuser, created_at, updated_at`

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *UsersRepo) Create(ctx context.Context, req user.CreateUserRequest, hashedPassword string) (user.User, error) {
	var u user.User
	now := time.Now().UTC()

	err := r.prom.ObserveDB("users.create", func() error {
		return scanUser(r.q.QueryRow(ctx,
			`INSERT INTO users (username, email, full_name, hashed_password, is_active, is_superuser, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, FALSE, $5, $5)
			RETURNING `+userColumns,
			req.Username, req.Email, req.FullName, hashedPassword, now,
		), &u)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, fmt.Errorf("insert user: %w", errors.Join(repo.ErrUniqueViolation, err))
		}

		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, bool, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, false, nil
		}

		return user.User{}, false, fmt.Errorf("query user: %w", err)
	}

	return u, true, nil
}

func (r *UsersRepo) List(ctx context.Context, offset, limit int) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.prom.ObserveDB("users.list", func() error {
		rows, err = r.q.Query(ctx,
			`SELECT `+userColumns+`
			FROM users
			ORDER BY id ASC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	defer rows.Close()

	users = make([]user.User, 0, limit)

	for rows.Next() {
		var u user.User

		if err = scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.prom.ObserveDB("users.count", func() error {
		return r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return total, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int64, patch user.UpdateUserRequest) (user.User, bool, error) {
	sets := make([]string, 0, 4)
	args := []any{id}

	// $1 is the id
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.FullName.Set {
		// nil Value writes NULL
		add("full_name", patch.FullName.Value)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	add("updated_at", time.Now().UTC())

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns

	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		return scanUser(r.q.QueryRow(ctx, query, args...), &u)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, false, nil
		}

		if IsUniqueViolation(err) {
			return user.User{}, false, fmt.Errorf("update user: %w", errors.Join(repo.ErrUniqueViolation, err))
		}

		return user.User{}, false, fmt.Errorf("update user: %w", err)
	}

	return u, true, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("users.delete", func() error {
		var e error
		tag, e = r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *UsersRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "users.exists_by_username", `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "users.exists_by_email", `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UsersRepo) exists(ctx context.Context, op, query string, arg any) (bool, error) {
	var found bool

	err := r.prom.ObserveDB(op, func() error {
		return r.q.QueryRow(ctx, query, arg).Scan(&found)
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return found, nil
}

func scanUser(row pgx.Row, u *user.User) error {
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
