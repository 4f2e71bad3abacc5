// Package service orchestrates authentication: credential validation,
// the two-factor challenge flow, token issuance, and session lifecycle.
// Credential failures surface to callers as a generic failure; the
// reason is kept for the audit trail only.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	activitydomain "investaccred/backend/internal/activity/domain"
	"investaccred/backend/internal/identity"
	"investaccred/backend/internal/mfa"
	preferencedomain "investaccred/backend/internal/preference/domain"
	"investaccred/backend/internal/security"
	sessiondomain "investaccred/backend/internal/session/domain"
	userdomain "investaccred/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse   = errors.New("refresh token reuse detected; all sessions revoked")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionNotOwned     = errors.New("session does not belong to the user")
	ErrUserNotFound        = errors.New("user not found")
)

// genericLoginFailure is the only credential-failure message callers see.
const genericLoginFailure = "authentication failed"

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	IncrementFailedLogins(ctx context.Context, id string) error
	SetTOTPSecret(ctx context.Context, id, secret string) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id, reason string) error
	RevokeAllByUser(ctx context.Context, userID, reason string) error
	RevokeAllExcept(ctx context.Context, userID, keepID, reason string) error
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
}

// PreferenceRepo is the minimal preference repository needed by the auth service.
type PreferenceRepo interface {
	Get(ctx context.Context, userID string) (*preferencedomain.Preference, error)
	SetTwoFactor(ctx context.Context, userID string, enabled bool, method preferencedomain.TwoFactorMethod) error
}

// Recorder appends audit-trail entries.
type Recorder interface {
	Record(ctx context.Context, userID string, typ activitydomain.Type, status activitydomain.Status, details, failureReason string)
}

// AuthService implements login, the MFA challenge flow, refresh,
// logout, session revocation, and two-factor setup.
type AuthService struct {
	provider   identity.Provider
	users      UserRepo
	sessions   SessionRepo
	prefs      PreferenceRepo
	methods    *mfa.Registry
	tokens     *security.TokenProvider
	activity   Recorder
	totpIssuer string
	log        *zap.Logger
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	provider identity.Provider,
	users UserRepo,
	sessions SessionRepo,
	prefs PreferenceRepo,
	methods *mfa.Registry,
	tokens *security.TokenProvider,
	activity Recorder,
	totpIssuer string,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		provider:   provider,
		users:      users,
		sessions:   sessions,
		prefs:      prefs,
		methods:    methods,
		tokens:     tokens,
		activity:   activity,
		totpIssuer: totpIssuer,
		log:        log,
	}
}

// TokenPair is an issued access/refresh token set.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// LoginResult is the outcome of Login or VerifyMFA. When RequiresMFA is
// set, MFAToken carries the continuation token and MFAMethods the single
// configured method; no tokens are issued until the second factor clears.
type LoginResult struct {
	Successful  bool
	Message     string
	RequiresMFA bool
	MFAMethods  []string
	MFAToken    string
	Tokens      *TokenPair
	UserID      string
	SessionID   string
}

func loginFailure() *LoginResult {
	return &LoginResult{Message: genericLoginFailure}
}

// LoginInput carries credentials plus request metadata for the session row.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Login validates credentials and either finishes the login directly or
// branches into the MFA challenge flow. All credential failures come
// back as the same generic failure result.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, res, err := s.provider.ValidateCredentials(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded {
		userID := ""
		if user != nil {
			userID = user.ID
			if res.FailureReason == identity.FailureInvalidPassword {
				if err := s.users.IncrementFailedLogins(ctx, user.ID); err != nil {
					s.log.Warn("failed-login counter update failed", zap.String("user_id", user.ID), zap.Error(err))
				}
			}
		}
		s.activity.Record(ctx, userID, activitydomain.TypeLogin, activitydomain.StatusFailure, "", string(res.FailureReason))
		return loginFailure(), nil
	}

	if s.provider.IsTwoFactorEnabled(user) {
		return s.beginMFAChallenge(ctx, user)
	}
	return s.finalizeLogin(ctx, user, in.IPAddress, in.UserAgent, "")
}

// beginMFAChallenge issues a continuation token and, for SMS/Email,
// dispatches a one-time code. Only the user's configured method is
// advertised back.
func (s *AuthService) beginMFAChallenge(ctx context.Context, user *userdomain.User) (*LoginResult, error) {
	pref, err := s.prefs.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	method := pref.TwoFactorMethod
	if method == "" {
		method = preferencedomain.MethodEmail
	}
	m, err := s.methods.ForMethod(method)
	if err != nil {
		s.activity.Record(ctx, user.ID, activitydomain.TypeLogin, activitydomain.StatusFailure, "", err.Error())
		return loginFailure(), nil
	}

	token, err := s.tokens.IssueMFA(user.Email)
	if err != nil {
		return nil, err
	}

	code, err := m.GenerateChallenge(ctx, user)
	if err != nil {
		s.activity.Record(ctx, user.ID, activitydomain.TypeLogin, activitydomain.StatusFailure, "", err.Error())
		return loginFailure(), nil
	}
	if code != "" {
		if err := m.DispatchChallenge(ctx, user, code); err != nil {
			s.activity.Record(ctx, user.ID, activitydomain.TypeLogin, activitydomain.StatusFailure, "", err.Error())
			return loginFailure(), nil
		}
	}
	s.activity.Record(ctx, user.ID, activitydomain.TypeMFAChallengeSent, activitydomain.StatusSuccess,
		fmt.Sprintf("method=%s", method), "")

	return &LoginResult{
		Successful:  true,
		RequiresMFA: true,
		MFAMethods:  []string{string(method)},
		MFAToken:    token,
		Message:     "two-factor verification required",
	}, nil
}

// finalizeLogin is the shared success path for direct login and MFA
// completion: stamp last login, mint tokens, persist the session, audit.
func (s *AuthService) finalizeLogin(ctx context.Context, user *userdomain.User, ip, userAgent, mfaMethod string) (*LoginResult, error) {
	if err := s.provider.UpdateLastLoginDate(ctx, user); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	access, _, accessExp, err := s.tokens.IssueAccess(sessionID, user.ID)
	if err != nil {
		return nil, err
	}
	refresh, jti, refreshExp, err := s.tokens.IssueRefresh(sessionID, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refresh),
		IssuedAt:         now,
		ExpiresAt:        refreshExp,
		IPAddress:        ip,
		UserAgent:        userAgent,
		IsActive:         true,
		CreatedAt:        now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	details := fmt.Sprintf("session=%s", sessionID)
	if mfaMethod != "" {
		details += fmt.Sprintf(" mfaMethod=%s", mfaMethod)
	}
	s.activity.Record(ctx, user.ID, activitydomain.TypeLogin, activitydomain.StatusSuccess, details, "")

	return &LoginResult{
		Successful: true,
		Message:    "login successful",
		Tokens:     &TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp},
		UserID:     user.ID,
		SessionID:  sessionID,
	}, nil
}

// VerifyMFAInput carries the continuation token and submitted code.
type VerifyMFAInput struct {
	Token     string
	Method    string
	Code      string
	IPAddress string
	UserAgent string
}

// VerifyMFA completes a pending login. Every failure mode returns the
// same empty failure result; nothing distinguishes a bad token from a
// bad code externally.
func (s *AuthService) VerifyMFA(ctx context.Context, in VerifyMFAInput) (*LoginResult, error) {
	email, err := s.tokens.ValidateMFA(in.Token)
	if err != nil {
		return loginFailure(), nil
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return loginFailure(), nil
	}

	method := preferencedomain.TwoFactorMethod(in.Method)
	m, err := s.methods.ForMethod(method)
	if err != nil {
		s.activity.Record(ctx, user.ID, activitydomain.TypeMFAFailed, activitydomain.StatusFailure, "", err.Error())
		return loginFailure(), nil
	}
	ok, err := m.Verify(ctx, user, in.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.activity.Record(ctx, user.ID, activitydomain.TypeMFAFailed, activitydomain.StatusFailure,
			fmt.Sprintf("method=%s", method), "code verification failed")
		return loginFailure(), nil
	}

	s.activity.Record(ctx, user.ID, activitydomain.TypeMFAVerified, activitydomain.StatusSuccess,
		fmt.Sprintf("method=%s", method), "")
	return s.finalizeLogin(ctx, user, in.IPAddress, in.UserAgent, string(method))
}

// ResendResult is the outcome of a resend request.
type ResendResult struct {
	Successful bool
	Message    string
}

// ResendMFA re-dispatches a fresh one-time code for a pending login.
// Authenticator has nothing to resend and reports success.
func (s *AuthService) ResendMFA(ctx context.Context, token, method string) (*ResendResult, error) {
	email, err := s.tokens.ValidateMFA(token)
	if err != nil {
		return &ResendResult{Message: "two-factor verification failed"}, nil
	}
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &ResendResult{Message: "two-factor verification failed"}, nil
	}

	m, err := s.methods.ForMethod(preferencedomain.TwoFactorMethod(method))
	if err != nil {
		return &ResendResult{Message: "two-factor verification failed"}, nil
	}
	if m.Name() == preferencedomain.MethodAuthenticator {
		return &ResendResult{Successful: true, Message: "your authenticator app generates codes; there is nothing to resend"}, nil
	}

	code, err := m.GenerateChallenge(ctx, user)
	if err != nil {
		return &ResendResult{Message: resendFailureMessage(err)}, nil
	}
	if err := m.DispatchChallenge(ctx, user, code); err != nil {
		s.log.Warn("two-factor code dispatch failed", zap.String("user_id", user.ID), zap.Error(err))
		return &ResendResult{Message: "could not deliver a new code; try again shortly"}, nil
	}
	s.activity.Record(ctx, user.ID, activitydomain.TypeMFAChallengeSent, activitydomain.StatusSuccess,
		fmt.Sprintf("method=%s resend=true", method), "")
	return &ResendResult{Successful: true, Message: "a new code has been sent"}, nil
}

// resendFailureMessage keeps resend errors specific to the caller's own
// configuration without exposing internals.
func resendFailureMessage(err error) string {
	switch {
	case errors.Is(err, mfa.ErrNoPhoneNumber):
		return "no phone number is on file for SMS codes"
	case errors.Is(err, mfa.ErrEmailNotConfirmed):
		return "confirm your email address before requesting email codes"
	}
	return "could not deliver a new code; try again shortly"
}

// Refresh rotates a refresh token: the presented token must match the
// session's current binding exactly. A stale (already rotated) token is
// treated as theft and revokes every session for the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sessionID, jti, userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if sess == nil || !sess.Usable(now) {
		s.activity.Record(ctx, userID, activitydomain.TypeTokenRefresh, activitydomain.StatusFailure, "", "session not usable")
		return nil, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != jti || !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		if err := s.sessions.RevokeAllByUser(ctx, userID, "refresh token reuse detected"); err != nil {
			return nil, err
		}
		s.activity.Record(ctx, userID, activitydomain.TypeTokenRefresh, activitydomain.StatusFailure, "", "refresh token reuse")
		return nil, ErrRefreshTokenReuse
	}

	access, _, accessExp, err := s.tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, err
	}
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, sessionID, newJti, security.HashRefreshToken(newRefresh)); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateLastActivity(ctx, sessionID, now); err != nil {
		s.log.Warn("session activity stamp failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.activity.Record(ctx, userID, activitydomain.TypeTokenRefresh, activitydomain.StatusSuccess,
		fmt.Sprintf("session=%s", sessionID), "")
	return &TokenPair{AccessToken: access, RefreshToken: newRefresh, AccessExpiresAt: accessExp}, nil
}

// Logout revokes the session bound to the presented refresh token. The
// outcome is logged as a success either way so callers cannot probe
// token validity through logout.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	sessionID, _, userID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		s.activity.Record(ctx, "", activitydomain.TypeLogout, activitydomain.StatusSuccess, "", "")
		return nil
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess != nil && sess.UserID == userID {
		if err := s.sessions.Revoke(ctx, sessionID, "logout"); err != nil {
			return err
		}
	}
	s.activity.Record(ctx, userID, activitydomain.TypeLogout, activitydomain.StatusSuccess, "", "")
	return nil
}

// ListSessions returns all sessions for the user, active and revoked.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// RevokeSession revokes one of the caller's own sessions by id.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.UserID != userID {
		return ErrSessionNotOwned
	}
	if err := s.sessions.Revoke(ctx, sessionID, "revoked by user"); err != nil {
		return err
	}
	s.activity.Record(ctx, userID, activitydomain.TypeSessionRevoked, activitydomain.StatusSuccess,
		fmt.Sprintf("session=%s", sessionID), "")
	return nil
}

// RevokeAllExceptCurrent revokes every other session for the user. The
// designated current session must belong to the user.
func (s *AuthService) RevokeAllExceptCurrent(ctx context.Context, userID, currentSessionID string) error {
	sess, err := s.sessions.GetByID(ctx, currentSessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if sess.UserID != userID {
		return ErrSessionNotOwned
	}
	if err := s.sessions.RevokeAllExcept(ctx, userID, currentSessionID, "revoked by user"); err != nil {
		return err
	}
	s.activity.Record(ctx, userID, activitydomain.TypeAllSessionsRevoked, activitydomain.StatusSuccess,
		fmt.Sprintf("kept=%s", currentSessionID), "")
	return nil
}

// EnableTwoFactorResult is the outcome of starting two-factor setup.
// Secret and OTPAuthURL are populated for the Authenticator method only;
// the URL is the QR payload for authenticator apps.
type EnableTwoFactorResult struct {
	Successful bool
	Message    string
	Secret     string
	OTPAuthURL string
}

// EnableTwoFactor starts method-specific setup. The two-factor flag is
// NOT flipped here; VerifyTwoFactorSetup does that once the user proves
// they can produce a valid code.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID string, method preferencedomain.TwoFactorMethod) (*EnableTwoFactorResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	m, err := s.methods.ForMethod(method)
	if err != nil {
		return nil, err
	}

	if method == preferencedomain.MethodAuthenticator {
		secret, otpauthURL, err := mfa.GenerateTOTPSecret(s.totpIssuer, user.Email)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetTOTPSecret(ctx, user.ID, secret); err != nil {
			return nil, err
		}
		user.TOTPSecret = secret
		return &EnableTwoFactorResult{
			Successful: true,
			Message:    "scan the code with your authenticator app, then verify a generated code to finish setup",
			Secret:     secret,
			OTPAuthURL: otpauthURL,
		}, nil
	}

	code, err := m.GenerateChallenge(ctx, user)
	if err != nil {
		return &EnableTwoFactorResult{Message: resendFailureMessage(err)}, nil
	}
	if err := m.DispatchChallenge(ctx, user, code); err != nil {
		s.log.Warn("two-factor setup code dispatch failed", zap.String("user_id", user.ID), zap.Error(err))
		return &EnableTwoFactorResult{Message: "could not deliver a verification code; try again shortly"}, nil
	}
	return &EnableTwoFactorResult{
		Successful: true,
		Message:    "a verification code has been sent; submit it to finish setup",
	}, nil
}

// VerifyTwoFactorSetupResult is the outcome of completing setup.
type VerifyTwoFactorSetupResult struct {
	Successful bool
	Message    string
}

// VerifyTwoFactorSetup checks the submitted code against the chosen
// method and, only on success, flips the identity flag and stores the
// method in one step.
func (s *AuthService) VerifyTwoFactorSetup(ctx context.Context, userID string, method preferencedomain.TwoFactorMethod, code string) (*VerifyTwoFactorSetupResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	m, err := s.methods.ForMethod(method)
	if err != nil {
		return nil, err
	}
	ok, err := m.Verify(ctx, user, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.activity.Record(ctx, userID, activitydomain.TypeMFAFailed, activitydomain.StatusFailure,
			fmt.Sprintf("method=%s setup=true", method), "code verification failed")
		return &VerifyTwoFactorSetupResult{Message: "verification code is incorrect or expired"}, nil
	}

	if err := s.provider.SetTwoFactorEnabled(ctx, user, true); err != nil {
		return nil, err
	}
	if err := s.prefs.SetTwoFactor(ctx, userID, true, method); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, activitydomain.TypeTwoFactorEnabled, activitydomain.StatusSuccess,
		fmt.Sprintf("method=%s", method), "")
	return &VerifyTwoFactorSetupResult{Successful: true, Message: "two-factor authentication enabled"}, nil
}

// DisableTwoFactor unconditionally turns two-factor off for the user.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.provider.SetTwoFactorEnabled(ctx, user, false); err != nil {
		return err
	}
	if err := s.prefs.SetTwoFactor(ctx, userID, false, ""); err != nil {
		return err
	}
	s.activity.Record(ctx, userID, activitydomain.TypeTwoFactorDisabled, activitydomain.StatusSuccess, "", "")
	return nil
}
