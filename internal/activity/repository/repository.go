package repository

import (
	"context"

	"investaccred/backend/internal/activity/domain"
)

// Repository defines persistence for activity log entries. Append-only.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.Entry, error)
}
