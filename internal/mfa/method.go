package mfa

import (
	"context"
	"errors"

	preferencedomain "investaccred/backend/internal/preference/domain"
	userdomain "investaccred/backend/internal/user/domain"
)

// Identity provider keys for code generation/verification, one per method.
const (
	ProviderKeyPhone         = "Phone"
	ProviderKeyEmail         = "Email"
	ProviderKeyAuthenticator = "Authenticator"
)

var (
	// ErrNoPhoneNumber is returned when the SMS method is configured but the user has no phone on file.
	ErrNoPhoneNumber = errors.New("no phone number on file")
	// ErrEmailNotConfirmed is returned when the Email method is configured but the address is unconfirmed.
	ErrEmailNotConfirmed = errors.New("email address not confirmed")
	// ErrUnknownMethod is returned for a method outside the closed SMS/Email/Authenticator set.
	ErrUnknownMethod = errors.New("unknown two-factor method")
)

// TokenSource generates and verifies one-time codes keyed by provider.
// Implemented by the local identity provider.
type TokenSource interface {
	GenerateTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string) (string, error)
	VerifyTwoFactorToken(ctx context.Context, u *userdomain.User, providerKey string, code string) (bool, error)
}

// CodeSender delivers a one-time code to the user. Implemented by the
// notification dispatcher.
type CodeSender interface {
	SendTwoFactorCode(ctx context.Context, destination, code string) error
}

// Method is one closed variant of the second-factor capability. Authenticator
// has no dispatch step: codes are generated client-side, so GenerateChallenge
// returns an empty code and DispatchChallenge is a no-op.
type Method interface {
	Name() preferencedomain.TwoFactorMethod
	GenerateChallenge(ctx context.Context, u *userdomain.User) (code string, err error)
	DispatchChallenge(ctx context.Context, u *userdomain.User, code string) error
	Verify(ctx context.Context, u *userdomain.User, code string) (bool, error)
}

type smsMethod struct {
	tokens TokenSource
	sender CodeSender
}

func (m *smsMethod) Name() preferencedomain.TwoFactorMethod { return preferencedomain.MethodSMS }

func (m *smsMethod) GenerateChallenge(ctx context.Context, u *userdomain.User) (string, error) {
	if u.Phone == "" {
		return "", ErrNoPhoneNumber
	}
	return m.tokens.GenerateTwoFactorToken(ctx, u, ProviderKeyPhone)
}

func (m *smsMethod) DispatchChallenge(ctx context.Context, u *userdomain.User, code string) error {
	if u.Phone == "" {
		return ErrNoPhoneNumber
	}
	return m.sender.SendTwoFactorCode(ctx, u.Phone, code)
}

func (m *smsMethod) Verify(ctx context.Context, u *userdomain.User, code string) (bool, error) {
	return m.tokens.VerifyTwoFactorToken(ctx, u, ProviderKeyPhone, code)
}

type emailMethod struct {
	tokens TokenSource
	sender CodeSender
}

func (m *emailMethod) Name() preferencedomain.TwoFactorMethod { return preferencedomain.MethodEmail }

func (m *emailMethod) GenerateChallenge(ctx context.Context, u *userdomain.User) (string, error) {
	if !u.EmailConfirmed {
		return "", ErrEmailNotConfirmed
	}
	return m.tokens.GenerateTwoFactorToken(ctx, u, ProviderKeyEmail)
}

func (m *emailMethod) DispatchChallenge(ctx context.Context, u *userdomain.User, code string) error {
	return m.sender.SendTwoFactorCode(ctx, u.Email, code)
}

func (m *emailMethod) Verify(ctx context.Context, u *userdomain.User, code string) (bool, error) {
	return m.tokens.VerifyTwoFactorToken(ctx, u, ProviderKeyEmail, code)
}

type authenticatorMethod struct {
	tokens TokenSource
}

func (m *authenticatorMethod) Name() preferencedomain.TwoFactorMethod {
	return preferencedomain.MethodAuthenticator
}

func (m *authenticatorMethod) GenerateChallenge(ctx context.Context, u *userdomain.User) (string, error) {
	// Authenticator apps derive codes locally; there is nothing to generate here.
	return "", nil
}

func (m *authenticatorMethod) DispatchChallenge(ctx context.Context, u *userdomain.User, code string) error {
	return nil
}

func (m *authenticatorMethod) Verify(ctx context.Context, u *userdomain.User, code string) (bool, error) {
	return m.tokens.VerifyTwoFactorToken(ctx, u, ProviderKeyAuthenticator, code)
}

// Registry resolves the closed method set. No string-keyed dispatch leaks
// outside this package.
type Registry struct {
	methods map[preferencedomain.TwoFactorMethod]Method
}

// NewRegistry builds the method registry over the given token source and code sender.
func NewRegistry(tokens TokenSource, sender CodeSender) *Registry {
	return &Registry{methods: map[preferencedomain.TwoFactorMethod]Method{
		preferencedomain.MethodSMS:           &smsMethod{tokens: tokens, sender: sender},
		preferencedomain.MethodEmail:         &emailMethod{tokens: tokens, sender: sender},
		preferencedomain.MethodAuthenticator: &authenticatorMethod{tokens: tokens},
	}}
}

// ForMethod returns the Method for m, or ErrUnknownMethod.
func (r *Registry) ForMethod(m preferencedomain.TwoFactorMethod) (Method, error) {
	method, ok := r.methods[m]
	if !ok {
		return nil, ErrUnknownMethod
	}
	return method, nil
}
