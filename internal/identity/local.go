package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"investaccred/backend/internal/mfa"
	"investaccred/backend/internal/security"
	userdomain "investaccred/backend/internal/user/domain"
	userrepo "investaccred/backend/internal/user/repository"
)

const codeTTL = 10 * time.Minute

// ErrNoServerSideCode is returned when a server-side code is requested for
// the Authenticator provider key; authenticator codes are generated client-side.
var ErrNoServerSideCode = errors.New("authenticator codes are generated client-side")

// LocalProvider implements Provider against the local user store, bcrypt
// hashing, and the MFA code store.
type LocalProvider struct {
	users  userrepo.Repository
	hasher *security.Hasher
	codes  mfa.CodeStore
}

// NewLocalProvider returns a Provider backed by the given user repository,
// password hasher, and one-time-code store.
func NewLocalProvider(users userrepo.Repository, hasher *security.Hasher, codes mfa.CodeStore) *LocalProvider {
	return &LocalProvider{users: users, hasher: hasher, codes: codes}
}

// ValidateCredentials checks email/password, distinguishing lockout and
// unconfirmed email from a wrong password. For unknown accounts a dummy
// bcrypt comparison runs so response timing stays uniform.
func (p *LocalProvider) ValidateCredentials(ctx context.Context, email, password string) (*userdomain.User, CredentialResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, CredentialResult{}, err
	}
	if u == nil {
		_ = p.hasher.DummyCompare([]byte(password))
		return nil, CredentialResult{FailureReason: FailureUserNotFound}, nil
	}
	if u.IsLockedOut(time.Now().UTC()) {
		return u, CredentialResult{FailureReason: FailureLockedOut}, nil
	}
	if u.PasswordHash == "" || p.hasher.Compare(u.PasswordHash, []byte(password)) != nil {
		return u, CredentialResult{FailureReason: FailureInvalidPassword}, nil
	}
	if !u.EmailConfirmed {
		return u, CredentialResult{FailureReason: FailureEmailNotConfirmed}, nil
	}
	return u, CredentialResult{Succeeded: true}, nil
}

// IsTwoFactorEnabled reports the identity's two-factor flag.
func (p *LocalProvider) IsTwoFactorEnabled(u *userdomain.User) bool {
	return u != nil && u.TwoFactorEnabled
}

// IsEmailConfirmed reports whether the identity's email address is confirmed.
func (p *LocalProvider) IsEmailConfirmed(u *userdomain.User) bool {
	return u != nil && u.EmailConfirmed
}

// GenerateTwoFactorToken creates a one-time code for the Phone or Email
// provider key and stores its hash with a 10-minute TTL. The plain code is
// returned to the caller for dispatch and never persisted.
func (p *LocalProvider) GenerateTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string) (string, error) {
	if providerKey == mfa.ProviderKeyAuthenticator {
		return "", ErrNoServerSideCode
	}
	code, err := mfa.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := p.codes.Put(ctx, u.ID, providerKey, mfa.HashOTP(code), codeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyTwoFactorToken checks a submitted code. Phone/Email codes are
// consumed from the store on first attempt; Authenticator codes are verified
// as TOTP against the stored secret.
func (p *LocalProvider) VerifyTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string, code string) (bool, error) {
	if providerKey == mfa.ProviderKeyAuthenticator {
		if u.TOTPSecret == "" {
			return false, nil
		}
		return mfa.VerifyTOTP(code, u.TOTPSecret), nil
	}
	storedHash, ok, err := p.codes.Consume(ctx, u.ID, providerKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return mfa.OTPEqual(code, storedHash), nil
}

// SetTwoFactorEnabled flips the identity's two-factor flag.
func (p *LocalProvider) SetTwoFactorEnabled(ctx context.Context, u *userdomain.User, enabled bool) error {
	if err := p.users.SetTwoFactor(ctx, u.ID, enabled); err != nil {
		return err
	}
	u.TwoFactorEnabled = enabled
	return nil
}

// UpdateLastLoginDate resets the failed-attempt counter and stamps the last login.
func (p *LocalProvider) UpdateLastLoginDate(ctx context.Context, u *userdomain.User) error {
	now := time.Now().UTC()
	if err := p.users.ResetFailedLogins(ctx, u.ID, now); err != nil {
		return err
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	return nil
}
