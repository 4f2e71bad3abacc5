package repository

import (
	"context"
	"time"

	"investaccred/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Update persists mutable fields guarded by the version column; returns
	// ErrVersionConflict when the row changed since it was read.
	Update(ctx context.Context, u *domain.User) error
	IncrementFailedLogins(ctx context.Context, id string) error
	ResetFailedLogins(ctx context.Context, id string, lastLoginAt time.Time) error
	SetTwoFactor(ctx context.Context, id string, enabled bool) error
	SetTOTPSecret(ctx context.Context, id, secret string) error
}
