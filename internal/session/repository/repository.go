package repository

import (
	"context"
	"time"

	"investaccred/backend/internal/session/domain"
)

// Repository defines persistence for user sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByRefreshJti(ctx context.Context, jti string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Revoke deactivates a single session with the given reason. Revoking an
	// already-revoked session is a no-op.
	Revoke(ctx context.Context, id, reason string) error
	// RevokeAllByUser deactivates every active session for the user.
	RevokeAllByUser(ctx context.Context, userID, reason string) error
	// RevokeAllExcept deactivates every active session for the user except keepID.
	RevokeAllExcept(ctx context.Context, userID, keepID, reason string) error
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
	// UpdateRefreshToken rotates the session's refresh token binding (jti + hash).
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
}
