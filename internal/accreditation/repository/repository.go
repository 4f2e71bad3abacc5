package repository

import (
	"context"
	"errors"

	"investaccred/backend/internal/accreditation/domain"
)

// ErrVersionConflict reports a concurrent modification detected by the
// optimistic-concurrency version column.
var ErrVersionConflict = errors.New("accreditation was modified concurrently")

// Repository is the persistence boundary for accreditations. Lookup
// methods return (nil, nil) when no row matches; errors are reserved
// for storage failures.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Accreditation, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Accreditation, error)
	Create(ctx context.Context, a *domain.Accreditation) error

	// Update persists all mutable fields guarded by a.Version. On a
	// version mismatch it returns ErrVersionConflict; on success it
	// bumps a.Version in place.
	Update(ctx context.Context, a *domain.Accreditation) error
}
