package repository

import "context"

// Repository stores administrative role grants.
type Repository interface {
	// ListRoles returns the roles granted to a user; empty for users
	// with no grants.
	ListRoles(ctx context.Context, userID string) ([]string, error)
	Grant(ctx context.Context, userID, role string) error
	Revoke(ctx context.Context, userID, role string) error
}
