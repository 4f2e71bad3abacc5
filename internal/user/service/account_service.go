// Package service implements account lifecycle: registration, email
// verification, and password reset. Reset and resend flows answer
// identically whether or not the account exists.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	activitydomain "investaccred/backend/internal/activity/domain"
	"investaccred/backend/internal/mfa"
	"investaccred/backend/internal/security"
	"investaccred/backend/internal/user/domain"
	userrepo "investaccred/backend/internal/user/repository"
)

// Sentinel errors for the account service.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrWeakPassword           = errors.New("password must be at least 8 characters")
	ErrInvalidCode            = errors.New("verification code is incorrect or expired")
)

// Code-store provider keys for account flows, distinct from the
// two-factor keys so the flows cannot consume each other's codes.
const (
	verifyEmailKey   = "EmailVerify"
	passwordResetKey = "PasswordReset"
)

const codeTTL = 10 * time.Minute

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Notifier delivers verification codes by email.
type Notifier interface {
	SendVerificationCode(ctx context.Context, emailAddr, code string) error
}

// SessionRevoker invalidates sessions after a password change.
type SessionRevoker interface {
	RevokeAllByUser(ctx context.Context, userID, reason string) error
}

// Recorder appends audit-trail entries.
type Recorder interface {
	Record(ctx context.Context, userID string, typ activitydomain.Type, status activitydomain.Status, details, failureReason string)
}

// AccountService implements registration and account recovery.
type AccountService struct {
	users    userrepo.Repository
	hasher   *security.Hasher
	codes    mfa.CodeStore
	notifier Notifier
	sessions SessionRevoker
	activity Recorder
	log      *zap.Logger
}

// NewAccountService returns an AccountService with the given dependencies.
func NewAccountService(
	users userrepo.Repository,
	hasher *security.Hasher,
	codes mfa.CodeStore,
	notifier Notifier,
	sessions SessionRevoker,
	activity Recorder,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		hasher:   hasher,
		codes:    codes,
		notifier: notifier,
		sessions: sessions,
		activity: activity,
		log:      log,
	}
}

// RegisterInput carries a new account's details.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Register creates an unconfirmed account and sends a verification code.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (userID string, err error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !emailRe.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if len(in.Password) < 8 {
		return "", ErrWeakPassword
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailAlreadyRegistered
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return "", err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	s.activity.Record(ctx, u.ID, activitydomain.TypeRegistration, activitydomain.StatusSuccess, "", "")

	if err := s.sendCode(ctx, u, verifyEmailKey); err != nil {
		s.log.Warn("verification code dispatch failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u.ID, nil
}

// VerifyEmail confirms an address with the code sent at registration.
func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidCode
	}
	ok, err := s.consumeCode(ctx, u.ID, verifyEmailKey, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	u.EmailConfirmed = true
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.activity.Record(ctx, u.ID, activitydomain.TypeEmailVerified, activitydomain.StatusSuccess, "", "")
	return nil
}

// ResendVerification re-sends the email verification code. The response
// is identical whether the account exists, is already confirmed, or the
// dispatch failed, so the endpoint cannot be used for enumeration.
func (s *AccountService) ResendVerification(ctx context.Context, email string) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil || u == nil || u.EmailConfirmed {
		return
	}
	if err := s.sendCode(ctx, u, verifyEmailKey); err != nil {
		s.log.Warn("verification code dispatch failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// RequestPasswordReset sends a reset code when the account exists; the
// caller learns nothing either way.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil || u == nil {
		return
	}
	s.activity.Record(ctx, u.ID, activitydomain.TypePasswordResetRequest, activitydomain.StatusSuccess, "", "")
	if err := s.sendCode(ctx, u, passwordResetKey); err != nil {
		s.log.Warn("reset code dispatch failed", zap.String("user_id", u.ID), zap.Error(err))
	}
}

// ResetPassword sets a new password given a valid reset code and revokes
// every session for the account.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return err
	}
	if u == nil {
		return ErrInvalidCode
	}
	ok, err := s.consumeCode(ctx, u.ID, passwordResetKey, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllByUser(ctx, u.ID, "password reset"); err != nil {
		return err
	}
	s.activity.Record(ctx, u.ID, activitydomain.TypePasswordChanged, activitydomain.StatusSuccess, "", "")
	return nil
}

func (s *AccountService) sendCode(ctx context.Context, u *domain.User, providerKey string) error {
	code, err := mfa.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.codes.Put(ctx, u.ID, providerKey, mfa.HashOTP(code), codeTTL); err != nil {
		return err
	}
	if err := s.notifier.SendVerificationCode(ctx, u.Email, code); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

func (s *AccountService) consumeCode(ctx context.Context, userID, providerKey, code string) (bool, error) {
	storedHash, ok, err := s.codes.Consume(ctx, userID, providerKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return mfa.OTPEqual(code, storedHash), nil
}
