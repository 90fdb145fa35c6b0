package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already exists")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	// GetByUsername returns only active accounts.
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// RecordFailedLogin increments the failure counter. When the counter
	// reaches maxAttempts the account is locked until lockUntil and the
	// counter resets. It reports whether this call locked the account.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (bool, error)
	// RecordLogin clears the counter and lock and stamps last_login.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
