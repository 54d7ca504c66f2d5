// Package users handles patient portal accounts and access tokens.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername    = errors.New("users: username is required")
	ErrWeakPassword       = errors.New("users: password must be at least 6 characters")
	ErrUsernameTaken      = errors.New("users: username already exists")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrNotFound           = errors.New("users: user not found")
)

const minPasswordLength = 6

// User is a portal account. PasswordHash is a bcrypt hash.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists accounts. Create returns ErrUsernameTaken on duplicates.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}
