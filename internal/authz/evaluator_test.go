package authz

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type memRoleRepo struct {
	roles map[string][]string
	err   error
}

func (r *memRoleRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.roles[userID], nil
}

func (r *memRoleRepo) Grant(ctx context.Context, userID, role string) error {
	r.roles[userID] = append(r.roles[userID], role)
	return nil
}

func (r *memRoleRepo) Revoke(ctx context.Context, userID, role string) error { return nil }

func TestEvaluator_Authorize(t *testing.T) {
	repo := &memRoleRepo{roles: map[string][]string{
		"admin":    {RoleSuperAdmin},
		"reviewer": {RoleAccreditationReviewer},
		"support":  {RoleSupport},
	}}
	e := NewEvaluator(repo, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		action string
		want   bool
	}{
		{"superadmin does anything", "admin", "accreditation:review", true},
		{"superadmin unknown action", "admin", "something:new", true},
		{"reviewer reviews accreditations", "reviewer", "accreditation:review", true},
		{"reviewer cannot revoke sessions", "reviewer", "session:revoke", false},
		{"support revokes sessions", "support", "session:revoke", true},
		{"support cannot review", "support", "accreditation:review", false},
		{"no roles denied", "nobody", "accreditation:review", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Authorize(ctx, tt.userID, tt.action)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Authorize(%s, %s) = %v, want %v", tt.userID, tt.action, got, tt.want)
			}
		})
	}
}

func TestEvaluator_RoleStoreFailureSurfaces(t *testing.T) {
	e := NewEvaluator(&memRoleRepo{err: errors.New("db down")}, zap.NewNop())
	if _, err := e.Authorize(context.Background(), "admin", "accreditation:review"); err == nil {
		t.Fatal("expected role-store error to surface")
	}
}

func TestEvaluator_HealthCheck(t *testing.T) {
	e := NewEvaluator(&memRoleRepo{roles: map[string][]string{}}, zap.NewNop())
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
