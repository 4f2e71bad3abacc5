package repository

import (
	"context"

	"investaccred/backend/internal/document/domain"
)

// Repository defines the document lookup the accreditation engine needs.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) ([]*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, d *domain.Document) error
}
