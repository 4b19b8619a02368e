package user

import (
	"bytes"
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Column bounds of the users table.
const (
	UsernameMaxLen       = 50
	EmailMaxLen          = 100
	FullNameMaxLen       = 100
	HashedPasswordMaxLen = 255
)

// User is one row of the users table.
type User struct {
	ID             int64
	Username       string
	Email          string
	FullName       *string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Email    string  `json:"email" binding:"required,email,max=100"`
	FullName *string `json:"full_name" binding:"omitempty,max=100"`
	// max counts runes; PasswordMaxBytes is checked by the service
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// bcrypt rejects input longer than this many bytes.
const PasswordMaxBytes = 72

// Optional distinguishes a JSON field that was omitted (Set false) from one
// sent as null (Set true, Value nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}

	return json.Marshal(*o.Value)
}

// UpdateUserRequest is a partial update: nil fields are left untouched.
// FullName sent as null clears the column; its length is checked by
// FullNameTooLong since the validator cannot see inside Optional.
type UpdateUserRequest struct {
	Email    *string          `json:"email" binding:"omitempty,email,max=100"`
	FullName Optional[string] `json:"full_name" binding:"-"`
	IsActive *bool            `json:"is_active"`
}

func (r UpdateUserRequest) IsEmpty() bool {
	return r.Email == nil && !r.FullName.Set && r.IsActive == nil
}

func (r UpdateUserRequest) FullNameTooLong() bool {
	return r.FullName.Value != nil && utf8.RuneCountInString(*r.FullName.Value) > FullNameMaxLen
}

// Response is the outward representation of a User. It has no password field.
type Response struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResponse struct {
	Users    []Response `json:"users"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func ToResponse(u User) Response {
	return Response{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func ToResponses(users []User) []Response {
	out := make([]Response, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}

	return out
}
