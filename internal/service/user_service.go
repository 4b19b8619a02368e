// Package service holds the business rules for users. Every exported method
// is one unit of work inside repo.Store.WithinTx.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/raizurai/userhub/internal/domain/user"
	"github.com/raizurai/userhub/internal/repo"
	"github.com/raizurai/userhub/internal/security"
)

const (
	MaxPageSize     = 100
	DefaultPageSize = 10
)

type UserService struct {
	store  repo.Store
	hasher security.Hasher
	log    *slog.Logger
}

func NewUserService(store repo.Store, hasher security.Hasher, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}

	return &UserService{store: store, hasher: hasher, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, req user.CreateUserRequest) (user.Response, error) {
	if len(req.Password) > user.PasswordMaxBytes {
		return user.Response{}, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes", user.PasswordMaxBytes),
		}
	}

	var created user.User

	err := s.store.WithinTx(ctx, func(ctx context.Context, users repo.Users) error {
		taken, err := users.ExistsByUsername(ctx, req.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if taken {
			return &ConflictError{Field: "username", Value: req.Username}
		}

		taken, err = users.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return &ConflictError{Field: "email", Value: req.Email}
		}

		hashed, err := s.hasher.Hash(req.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		created, err = users.Create(ctx, req, hashed)
		if errors.Is(err, repo.ErrUniqueViolation) {
			// lost a race with a concurrent insert
			field := conflictField(err)
			value := req.Username
			if field == "email" {
				value = req.Email
			}

			return &ConflictError{Field: field, Value: value}
		}
		if err != nil {
			return err
		}

		if created.ID == 0 {
			return &InternalError{Op: "create user", Err: errors.New("inserted row has no id")}
		}

		return nil
	})
	if err != nil {
		s.logFailure(ctx, "user.create", err, slog.String("username", req.Username))
		return user.Response{}, err
	}

	s.log.InfoContext(ctx, "user.created",
		slog.Int64("user_id", created.ID),
		slog.String("username", created.Username),
	)

	return user.ToResponse(created), nil
}

// conflictField names the column behind a unique violation. Both drivers
// mention the constraint or column in the message.
func conflictField(err error) string {
	if strings.Contains(err.Error(), "email") {
		return "email"
	}

	return "username"
}

func (s *UserService) GetUser(ctx context.Context, id int64) (user.Response, error) {
	var found user.User

	err := s.store.WithinTx(ctx, func(ctx context.Context, users repo.Users) error {
		u, ok, err := users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !ok {
			return &NotFoundError{ID: id}
		}

		found = u
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "user.get", err, slog.Int64("user_id", id))
		return user.Response{}, err
	}

	return user.ToResponse(found), nil
}

// GetUsers returns the 1-indexed page of users ordered by id together with
// the total number of users.
func (s *UserService) GetUsers(ctx context.Context, page, pageSize int) (user.ListResponse, error) {
	if page < 1 {
		return user.ListResponse{}, &ValidationError{Field: "page", Message: "must be at least 1"}
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return user.ListResponse{}, &ValidationError{
			Field:   "page_size",
			Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize),
		}
	}
	// the offset must fit in an int
	if page-1 > math.MaxInt/pageSize {
		return user.ListResponse{}, &ValidationError{Field: "page", Message: "is too large"}
	}

	var (
		items []user.User
		total int
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, users repo.Users) error {
		var err error

		items, err = users.List(ctx, (page-1)*pageSize, pageSize)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		total, err = users.Count(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logFailure(ctx, "user.list", err, slog.Int("page", page), slog.Int("page_size", pageSize))
		return user.ListResponse{}, err
	}

	return user.ListResponse{
		Users:    user.ToResponses(items),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// UpdateUser applies the supplied fields of patch. An empty patch returns the
// current user unchanged.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch user.UpdateUserRequest) (user.Response, error) {
	if patch.FullNameTooLong() {
		return user.Response{}, &ValidationError{
			Field:   "full_name",
			Message: fmt.Sprintf("must be at most %d", user.FullNameMaxLen),
		}
	}

	var updated user.User

	err := s.store.WithinTx(ctx, func(ctx context.Context, users repo.Users) error {
		if patch.IsEmpty() || patch.Email != nil {
			current, ok, err := users.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			if !ok {
				return &NotFoundError{ID: id}
			}

			if patch.IsEmpty() {
				updated = current
				return nil
			}

			if *patch.Email != current.Email {
				taken, err := users.ExistsByEmail(ctx, *patch.Email)
				if err != nil {
					return fmt.Errorf("check email: %w", err)
				}
				if taken {
					return &ConflictError{Field: "email", Value: *patch.Email}
				}
			}
		}

		u, ok, err := users.Update(ctx, id, patch)
		if errors.Is(err, repo.ErrUniqueViolation) && patch.Email != nil {
			return &ConflictError{Field: "email", Value: *patch.Email}
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if !ok {
			return &NotFoundError{ID: id}
		}

		updated = u
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "user.update", err, slog.Int64("user_id", id))
		return user.Response{}, err
	}

	s.log.InfoContext(ctx, "user.updated", slog.Int64("user_id", id))

	return user.ToResponse(updated), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, users repo.Users) error {
		removed, err := users.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if !removed {
			return &NotFoundError{ID: id}
		}

		return nil
	})
	if err != nil {
		s.logFailure(ctx, "user.delete", err, slog.Int64("user_id", id))
		return err
	}

	s.log.InfoContext(ctx, "user.deleted", slog.Int64("user_id", id))

	return nil
}

// logFailure logs expected outcomes at warn and everything else at error.
func (s *UserService) logFailure(ctx context.Context, op string, err error, attrs ...slog.Attr) {
	var (
		notFound   *NotFoundError
		conflict   *ConflictError
		validation *ValidationError
	)

	attrs = append(attrs, slog.String("error", err.Error()))

	switch {
	case errors.As(err, &notFound), errors.As(err, &conflict), errors.As(err, &validation):
		s.log.LogAttrs(ctx, slog.LevelWarn, op+".rejected", attrs...)
	default:
		s.log.LogAttrs(ctx, slog.LevelError, op+".failed", attrs...)
	}
}
