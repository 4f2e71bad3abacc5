package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresRepository persists role grants with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a role repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListRoles returns the roles granted to userID.
func (r *PostgresRepository) ListRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := r.db.SelectContext(ctx, &roles,
		`SELECT role FROM admin_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// Grant records a role for userID; granting an already-held role is a no-op.
func (r *PostgresRepository) Grant(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, role)
	return err
}

// Revoke removes a role grant.
func (r *PostgresRepository) Revoke(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_roles WHERE user_id = $1 AND role = $2`, userID, role)
	return err
}
