// Package identity is the credential-storage capability boundary. The auth
// orchestrator talks to it through the Provider interface and never sees
// password hashes or lockout bookkeeping directly.
package identity

import (
	"context"

	userdomain "investaccred/backend/internal/user/domain"
)

// FailureReason distinguishes credential failures internally. It is recorded
// in the activity log and never echoed to the caller, which only ever sees a
// generic authentication failure.
type FailureReason string

const (
	FailureNone              FailureReason = ""
	FailureUserNotFound      FailureReason = "user_not_found"
	FailureInvalidPassword   FailureReason = "invalid_password"
	FailureEmailNotConfirmed FailureReason = "email_not_confirmed"
	FailureLockedOut         FailureReason = "locked_out"
)

// CredentialResult is the outcome of a credential check.
type CredentialResult struct {
	Succeeded     bool
	FailureReason FailureReason
}

// Provider is the identity-provider capability consumed by the auth
// orchestrator. Implementations own password verification, confirmation
// flags, lockout state, and two-factor token generation/verification.
type Provider interface {
	// ValidateCredentials checks email/password. The returned user is non-nil
	// whenever the account exists, even on failure, so the caller can record
	// the failed attempt against it.
	ValidateCredentials(ctx context.Context, email, password string) (*userdomain.User, CredentialResult, error)
	IsTwoFactorEnabled(u *userdomain.User) bool
	IsEmailConfirmed(u *userdomain.User) bool
	// GenerateTwoFactorToken creates a one-time code for the given provider
	// key (Phone, Email). The Authenticator key has no server-side code.
	GenerateTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string) (string, error)
	// VerifyTwoFactorToken checks a submitted code against the provider key.
	// Codes are single-use: a failed attempt consumes the stored code.
	VerifyTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string, code string) (bool, error)
	SetTwoFactorEnabled(ctx context.Context, u *userdomain.User, enabled bool) error
	UpdateLastLoginDate(ctx context.Context, u *userdomain.User) error
}
