// Package authz decides whether a user may perform privileged actions.
// Decisions are made by an in-process OPA Rego policy over the user's
// granted roles, and fail closed.
package authz

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"investaccred/backend/internal/authz/repository"
)

// Role names stored in the role repository.
const (
	RoleSuperAdmin            = "superadmin"
	RoleAccreditationReviewer = "accreditation_reviewer"
	RoleSupport               = "support"
)

const policyQuery = "data.investaccred.authz.allow"

// defaultRegoPolicy maps roles to the actions they permit. A role
// holding "*" may perform every action; everything else is denied.
const defaultRegoPolicy = `package investaccred.authz

default allow = false

role_actions := {
	"superadmin": {"*"},
	"accreditation_reviewer": {"accreditation:review", "document:review"},
	"support": {"session:revoke", "user:read"},
}

allow if {
	role := input.roles[_]
	role_actions[role][_] == "*"
}

allow if {
	role := input.roles[_]
	role_actions[role][_] == input.action
}
`

// Evaluator answers authorization questions from role grants.
type Evaluator struct {
	roles repository.Repository
	log   *zap.Logger
}

// NewEvaluator returns a role-based authorization evaluator.
func NewEvaluator(roles repository.Repository, log *zap.Logger) *Evaluator {
	return &Evaluator{roles: roles, log: log}
}

// Authorize reports whether userID may perform action. Role-store
// failures surface as errors; policy evaluation failures deny.
func (e *Evaluator) Authorize(ctx context.Context, userID, action string) (bool, error) {
	roles, err := e.roles.ListRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list roles: %w", err)
	}
	if len(roles) == 0 {
		return false, nil
	}

	input := map[string]interface{}{
		"user_id": userID,
		"roles":   roles,
		"action":  action,
	}
	allowed, err := e.evaluate(ctx, input)
	if err != nil {
		e.log.Error("authorization policy evaluation failed, denying",
			zap.String("user_id", userID), zap.String("action", action), zap.Error(err))
		return false, nil
	}
	return allowed, nil
}

func (e *Evaluator) evaluate(ctx context.Context, input map[string]interface{}) (bool, error) {
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": defaultRegoPolicy})
	if err != nil {
		return false, fmt.Errorf("compile policy: %w", err)
	}
	q := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy result is not a boolean")
	}
	return allowed, nil
}

// HealthCheck verifies the embedded policy compiles and evaluates.
func (e *Evaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, map[string]interface{}{
		"user_id": "",
		"roles":   []string{},
		"action":  "",
	})
	return err
}
