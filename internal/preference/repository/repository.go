package repository

import (
	"context"

	"investaccred/backend/internal/preference/domain"
)

// Repository defines persistence for user preferences.
type Repository interface {
	// Get returns the stored preference for userID, or the defaults when no
	// row exists yet. Never returns (nil, nil).
	Get(ctx context.Context, userID string) (*domain.Preference, error)
	// Upsert creates or replaces the preference row.
	Upsert(ctx context.Context, p *domain.Preference) error
	// SetTwoFactor updates the two-factor flag and method together.
	SetTwoFactor(ctx context.Context, userID string, enabled bool, method domain.TwoFactorMethod) error
}
