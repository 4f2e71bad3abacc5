package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	activitydomain "investaccred/backend/internal/activity/domain"
	"investaccred/backend/internal/identity"
	"investaccred/backend/internal/mfa"
	preferencedomain "investaccred/backend/internal/preference/domain"
	"investaccred/backend/internal/security"
	sessiondomain "investaccred/backend/internal/session/domain"
	userdomain "investaccred/backend/internal/user/domain"
)

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) IncrementFailedLogins(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.FailedLoginAttempts++
	}
	return nil
}

func (r *memUserRepo) ResetFailedLogins(ctx context.Context, id string, lastLoginAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		at := lastLoginAt
		u.LastLoginAt = &at
	}
	return nil
}

func (r *memUserRepo) SetTwoFactor(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.TwoFactorEnabled = enabled
	}
	return nil
}

func (r *memUserRepo) SetTOTPSecret(ctx context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.TOTPSecret = secret
	}
	return nil
}

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *memSessionRepo) ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.byID {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok && s.IsActive {
		now := time.Now().UTC()
		s.IsActive = false
		s.RevokedAt = &now
		s.RevokedReason = reason
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(ctx context.Context, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.byID {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			s.RevokedAt = &now
			s.RevokedReason = reason
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeAllExcept(ctx context.Context, userID, keepID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.byID {
		if s.UserID == userID && s.ID != keepID && s.IsActive {
			s.IsActive = false
			s.RevokedAt = &now
			s.RevokedReason = reason
		}
	}
	return nil
}

func (r *memSessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		t := at
		s.LastActivityAt = &t
	}
	return nil
}

func (r *memSessionRepo) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[sessionID]; ok && s.IsActive {
		s.RefreshJti = jti
		s.RefreshTokenHash = refreshTokenHash
	}
	return nil
}

type memPreferenceRepo struct {
	mu   sync.Mutex
	byID map[string]*preferencedomain.Preference
}

func newMemPreferenceRepo() *memPreferenceRepo {
	return &memPreferenceRepo{byID: map[string]*preferencedomain.Preference{}}
}

func (r *memPreferenceRepo) Get(ctx context.Context, userID string) (*preferencedomain.Preference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return preferencedomain.Default(userID), nil
}

func (r *memPreferenceRepo) SetTwoFactor(ctx context.Context, userID string, enabled bool, method preferencedomain.TwoFactorMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[userID]
	if !ok {
		p = preferencedomain.Default(userID)
		r.byID[userID] = p
	}
	p.TwoFactorEnabled = enabled
	p.TwoFactorMethod = method
	return nil
}

type memCodeStore struct {
	mu    sync.Mutex
	codes map[string]string
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{codes: map[string]string{}}
}

func (s *memCodeStore) Put(ctx context.Context, userID, providerKey, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID+"/"+providerKey] = codeHash
	return nil
}

func (s *memCodeStore) Consume(ctx context.Context, userID, providerKey string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.codes[userID+"/"+providerKey]
	if ok {
		delete(s.codes, userID+"/"+providerKey)
	}
	return h, ok, nil
}

type sentCode struct {
	destination string
	code        string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
}

func (s *fakeSender) SendTwoFactorCode(ctx context.Context, destination, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentCode{destination: destination, code: code})
	return nil
}

func (s *fakeSender) last() (sentCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentCode{}, false
	}
	return s.sent[len(s.sent)-1], true
}

type recordedEntry struct {
	userID  string
	typ     activitydomain.Type
	status  activitydomain.Status
	details string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (r *fakeRecorder) Record(ctx context.Context, userID string, typ activitydomain.Type, status activitydomain.Status, details, failureReason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedEntry{userID: userID, typ: typ, status: status, details: details})
}

func (r *fakeRecorder) find(typ activitydomain.Type) (recordedEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.typ == typ {
			return e, true
		}
	}
	return recordedEntry{}, false
}

type fixture struct {
	svc      *AuthService
	users    *memUserRepo
	sessions *memSessionRepo
	prefs    *memPreferenceRepo
	sender   *fakeSender
	activity *fakeRecorder
	tokens   *security.TokenProvider
	hasher   *security.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	f := &fixture{
		users:    newMemUserRepo(),
		sessions: newMemSessionRepo(),
		prefs:    newMemPreferenceRepo(),
		sender:   &fakeSender{},
		activity: &fakeRecorder{},
		tokens:   tokens,
		hasher:   security.NewHasher(4),
	}
	provider := identity.NewLocalProvider(f.users, f.hasher, newMemCodeStore())
	methods := mfa.NewRegistry(provider, f.sender)
	f.svc = NewAuthService(provider, f.users, f.sessions, f.prefs, methods, tokens, f.activity, "investaccred", zap.NewNop())
	return f
}

func (f *fixture) addUser(t *testing.T, id, email, password string, mutate func(*userdomain.User)) {
	t.Helper()
	hash, err := f.hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &userdomain.User{
		ID:             id,
		Email:          email,
		Name:           "Test User",
		Phone:          "+15550100",
		PasswordHash:   hash,
		EmailConfirmed: true,
		Version:        1,
	}
	if mutate != nil {
		mutate(u)
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestLogin_DirectSuccess(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!", IPAddress: "10.0.0.1", UserAgent: "cli"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Successful || res.RequiresMFA {
		t.Fatalf("result = %+v", res)
	}
	if res.Tokens == nil || res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", res.Tokens)
	}

	sess, _ := f.sessions.GetByID(ctx, res.SessionID)
	if sess == nil || !sess.IsActive || sess.UserID != "u1" || sess.IPAddress != "10.0.0.1" {
		t.Fatalf("session = %+v", sess)
	}
	u, _ := f.users.GetByID(ctx, "u1")
	if u.LastLoginAt == nil {
		t.Fatal("last login not stamped")
	}
	if e, ok := f.activity.find(activitydomain.TypeLogin); !ok || e.status != activitydomain.StatusSuccess {
		t.Fatalf("login activity = %+v found=%v", e, ok)
	}
}

func TestLogin_FailureIsGenericAndCounted(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"pat@example.com", "wrong"},
		{"nobody@example.com", "whatever"},
	} {
		res, err := f.svc.Login(ctx, LoginInput{Email: tc.email, Password: tc.password})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if res.Successful || res.Tokens != nil || res.MFAToken != "" {
			t.Fatalf("failure leaked state: %+v", res)
		}
		if res.Message != genericLoginFailure {
			t.Fatalf("message = %q, want generic", res.Message)
		}
	}

	u, _ := f.users.GetByID(ctx, "u1")
	if u.FailedLoginAttempts != 1 {
		t.Fatalf("failed attempts = %d, want 1", u.FailedLoginAttempts)
	}
}

func TestLogin_UnconfirmedEmailDoesNotCount(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.EmailConfirmed = false
	})

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Successful || res.Message != genericLoginFailure {
		t.Fatalf("result = %+v", res)
	}
	u, _ := f.users.GetByID(context.Background(), "u1")
	if u.FailedLoginAttempts != 0 {
		t.Fatalf("correct password must not count as a failed attempt, got %d", u.FailedLoginAttempts)
	}
}

func TestLogin_SMSBranchesIntoMFA(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.TwoFactorEnabled = true
	})
	f.prefs.SetTwoFactor(context.Background(), "u1", true, preferencedomain.MethodSMS)

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.RequiresMFA || res.MFAToken == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.MFAMethods) != 1 || res.MFAMethods[0] != "SMS" {
		t.Fatalf("must advertise only the configured method, got %v", res.MFAMethods)
	}
	if res.Tokens != nil {
		t.Fatal("no tokens may be issued before the second factor")
	}
	if sent, ok := f.sender.last(); !ok || sent.destination != "+15550100" {
		t.Fatalf("expected an SMS dispatch, got %+v ok=%v", sent, ok)
	}
}

func TestVerifyMFA_CompletesLogin(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.TwoFactorEnabled = true
	})
	f.prefs.SetTwoFactor(context.Background(), "u1", true, preferencedomain.MethodSMS)
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	if err != nil || !login.RequiresMFA {
		t.Fatalf("login: %v %+v", err, login)
	}
	code, _ := f.sender.last()

	res, err := f.svc.VerifyMFA(ctx, VerifyMFAInput{Token: login.MFAToken, Method: "SMS", Code: code.code})
	if err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}
	if !res.Successful || res.Tokens == nil {
		t.Fatalf("result = %+v", res)
	}

	sess, _ := f.sessions.GetByID(ctx, res.SessionID)
	if sess == nil || !sess.IsActive {
		t.Fatalf("session = %+v", sess)
	}
	e, ok := f.activity.find(activitydomain.TypeLogin)
	if !ok || e.status != activitydomain.StatusSuccess || !strings.Contains(e.details, "mfaMethod=SMS") {
		t.Fatalf("login activity = %+v found=%v", e, ok)
	}
}

func TestVerifyMFA_WrongCodeFailsGenerically(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.TwoFactorEnabled = true
	})
	f.prefs.SetTwoFactor(context.Background(), "u1", true, preferencedomain.MethodSMS)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	res, err := f.svc.VerifyMFA(ctx, VerifyMFAInput{Token: login.MFAToken, Method: "SMS", Code: "000000"})
	if err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}
	if res.Successful || res.Tokens != nil {
		t.Fatalf("wrong code must not log in: %+v", res)
	}
	if _, ok := f.activity.find(activitydomain.TypeMFAFailed); !ok {
		t.Fatal("expected an MFAFailed activity entry")
	}
}

func TestVerifyMFA_GarbageTokenFails(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.VerifyMFA(context.Background(), VerifyMFAInput{Token: "garbage", Method: "SMS", Code: "123456"})
	if err != nil {
		t.Fatalf("VerifyMFA: %v", err)
	}
	if res.Successful || res.Tokens != nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestResendMFA(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.TwoFactorEnabled = true
	})
	f.prefs.SetTwoFactor(context.Background(), "u1", true, preferencedomain.MethodSMS)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})

	res, err := f.svc.ResendMFA(ctx, login.MFAToken, "SMS")
	if err != nil || !res.Successful {
		t.Fatalf("ResendMFA: %v %+v", err, res)
	}
	f.sender.mu.Lock()
	count := len(f.sender.sent)
	f.sender.mu.Unlock()
	if count != 2 {
		t.Fatalf("expected 2 dispatches, got %d", count)
	}

	// Authenticator resends are a no-op success.
	res, err = f.svc.ResendMFA(ctx, login.MFAToken, "Authenticator")
	if err != nil || !res.Successful {
		t.Fatalf("authenticator resend: %v %+v", err, res)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})

	pair, err := f.svc.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// Replaying the rotated-out token is treated as theft.
	if _, err := f.svc.Refresh(ctx, login.Tokens.RefreshToken); err != ErrRefreshTokenReuse {
		t.Fatalf("err = %v, want ErrRefreshTokenReuse", err)
	}
	sess, _ := f.sessions.GetByID(ctx, login.SessionID)
	if sess.IsActive {
		t.Fatal("reuse detection must revoke the session")
	}
}

func TestRefresh_InactiveSessionFails(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	if err := f.sessions.Revoke(ctx, login.SessionID, "test"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, login.Tokens.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})
	if err := f.svc.Logout(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	sess, _ := f.sessions.GetByID(ctx, login.SessionID)
	if sess.IsActive {
		t.Fatal("logout must revoke the session")
	}

	// An invalid token logs out quietly.
	if err := f.svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("Logout with bad token: %v", err)
	}
}

func TestRevokeSession_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	f.addUser(t, "u2", "sam@example.com", "hunter2!", nil)
	ctx := context.Background()

	login, _ := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})

	if err := f.svc.RevokeSession(ctx, "u2", login.SessionID); err != ErrSessionNotOwned {
		t.Fatalf("err = %v, want ErrSessionNotOwned", err)
	}
	if err := f.svc.RevokeSession(ctx, "u1", "missing"); err != ErrSessionNotFound {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if err := f.svc.RevokeSession(ctx, "u1", login.SessionID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	sess, _ := f.sessions.GetByID(ctx, login.SessionID)
	if sess.IsActive || sess.RevokedAt == nil {
		t.Fatalf("session = %+v", sess)
	}
}

func TestRevokeAllExceptCurrent(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	var logins []*LoginResult
	for i := 0; i < 3; i++ {
		res, err := f.svc.Login(ctx, LoginInput{Email: "pat@example.com", Password: "hunter2!"})
		if err != nil || !res.Successful {
			t.Fatalf("login %d: %v %+v", i, err, res)
		}
		logins = append(logins, res)
	}
	current := logins[2]

	if err := f.svc.RevokeAllExceptCurrent(ctx, "u1", current.SessionID); err != nil {
		t.Fatalf("RevokeAllExceptCurrent: %v", err)
	}

	sessions, _ := f.svc.ListSessions(ctx, "u1")
	for _, sess := range sessions {
		if sess.ID == current.SessionID {
			if !sess.IsActive {
				t.Fatal("current session must stay active")
			}
			continue
		}
		if sess.IsActive || sess.RevokedAt == nil {
			t.Fatalf("session %s not revoked: %+v", sess.ID, sess)
		}
	}
}

func TestEnableTwoFactor_AuthenticatorIssuesSecretWithoutFlipping(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	res, err := f.svc.EnableTwoFactor(ctx, "u1", preferencedomain.MethodAuthenticator)
	if err != nil || !res.Successful {
		t.Fatalf("EnableTwoFactor: %v %+v", err, res)
	}
	if res.Secret == "" || !strings.HasPrefix(res.OTPAuthURL, "otpauth://") {
		t.Fatalf("setup payload = %+v", res)
	}

	u, _ := f.users.GetByID(ctx, "u1")
	if u.TOTPSecret == "" {
		t.Fatal("secret not stored")
	}
	if u.TwoFactorEnabled {
		t.Fatal("enable must not flip the flag before verification")
	}
}

func TestEnableTwoFactor_SMSRequiresPhone(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.Phone = ""
	})

	res, err := f.svc.EnableTwoFactor(context.Background(), "u1", preferencedomain.MethodSMS)
	if err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}
	if res.Successful {
		t.Fatal("SMS setup must fail without a phone number")
	}
}

func TestVerifyTwoFactorSetup_FlipsFlagAndPreference(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	res, err := f.svc.EnableTwoFactor(ctx, "u1", preferencedomain.MethodSMS)
	if err != nil || !res.Successful {
		t.Fatalf("EnableTwoFactor: %v %+v", err, res)
	}
	code, _ := f.sender.last()

	ver, err := f.svc.VerifyTwoFactorSetup(ctx, "u1", preferencedomain.MethodSMS, code.code)
	if err != nil || !ver.Successful {
		t.Fatalf("VerifyTwoFactorSetup: %v %+v", err, ver)
	}

	u, _ := f.users.GetByID(ctx, "u1")
	if !u.TwoFactorEnabled {
		t.Fatal("identity flag not flipped")
	}
	pref, _ := f.prefs.Get(ctx, "u1")
	if !pref.TwoFactorEnabled || pref.TwoFactorMethod != preferencedomain.MethodSMS {
		t.Fatalf("preference = %+v", pref)
	}
}

func TestVerifyTwoFactorSetup_WrongCode(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", nil)
	ctx := context.Background()

	if _, err := f.svc.EnableTwoFactor(ctx, "u1", preferencedomain.MethodSMS); err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}
	ver, err := f.svc.VerifyTwoFactorSetup(ctx, "u1", preferencedomain.MethodSMS, "000000")
	if err != nil {
		t.Fatalf("VerifyTwoFactorSetup: %v", err)
	}
	if ver.Successful {
		t.Fatal("wrong code must not enable two-factor")
	}
	u, _ := f.users.GetByID(ctx, "u1")
	if u.TwoFactorEnabled {
		t.Fatal("flag flipped on failed verification")
	}
}

func TestDisableTwoFactor(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "pat@example.com", "hunter2!", func(u *userdomain.User) {
		u.TwoFactorEnabled = true
	})
	ctx := context.Background()
	f.prefs.SetTwoFactor(ctx, "u1", true, preferencedomain.MethodSMS)

	if err := f.svc.DisableTwoFactor(ctx, "u1"); err != nil {
		t.Fatalf("DisableTwoFactor: %v", err)
	}
	u, _ := f.users.GetByID(ctx, "u1")
	if u.TwoFactorEnabled {
		t.Fatal("flag not cleared")
	}
	pref, _ := f.prefs.Get(ctx, "u1")
	if pref.TwoFactorEnabled {
		t.Fatalf("preference not cleared: %+v", pref)
	}
}
