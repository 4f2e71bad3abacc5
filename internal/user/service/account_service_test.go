package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	activitydomain "investaccred/backend/internal/activity/domain"
	"investaccred/backend/internal/security"
	"investaccred/backend/internal/user/domain"
)

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
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

func (r *memUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	cp.Version++
	r.byID[u.ID] = &cp
	u.Version++
	return nil
}

func (r *memUserRepo) IncrementFailedLogins(ctx context.Context, id string) error { return nil }

func (r *memUserRepo) ResetFailedLogins(ctx context.Context, id string, lastLoginAt time.Time) error {
	return nil
}

func (r *memUserRepo) SetTwoFactor(ctx context.Context, id string, enabled bool) error { return nil }

func (r *memUserRepo) SetTOTPSecret(ctx context.Context, id, secret string) error { return nil }

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

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string // codes, in order
	addrs []string
	fail  bool
}

func (n *fakeNotifier) SendVerificationCode(ctx context.Context, emailAddr, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, code)
	n.addrs = append(n.addrs, emailAddr)
	return nil
}

func (n *fakeNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1]
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []string
}

func (r *fakeRevoker) RevokeAllByUser(ctx context.Context, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, userID)
	return nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	types []activitydomain.Type
}

func (r *fakeRecorder) Record(ctx context.Context, userID string, typ activitydomain.Type, status activitydomain.Status, details, failureReason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, typ)
}

func (r *fakeRecorder) has(typ activitydomain.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t == typ {
			return true
		}
	}
	return false
}

type fixture struct {
	svc      *AccountService
	users    *memUserRepo
	notifier *fakeNotifier
	revoker  *fakeRevoker
	activity *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newMemUserRepo(),
		notifier: &fakeNotifier{},
		revoker:  &fakeRevoker{},
		activity: &fakeRecorder{},
	}
	f.svc = NewAccountService(f.users, security.NewHasher(4), newMemCodeStore(), f.notifier, f.revoker, f.activity, zap.NewNop())
	return f
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Register(ctx, RegisterInput{
		Email: "Pat@Example.com", Password: "hunter2!!", Name: "Pat",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, _ := f.users.GetByID(ctx, id)
	if u == nil || u.Email != "pat@example.com" || u.EmailConfirmed {
		t.Fatalf("user = %+v", u)
	}
	if !f.activity.has(activitydomain.TypeRegistration) {
		t.Fatal("expected a registration activity entry")
	}

	code := f.notifier.lastCode()
	if code == "" {
		t.Fatal("no verification code sent")
	}
	if err := f.svc.VerifyEmail(ctx, "pat@example.com", code); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	u, _ = f.users.GetByID(ctx, id)
	if !u.EmailConfirmed {
		t.Fatal("email not confirmed")
	}

	// Codes are single-use.
	if err := f.svc.VerifyEmail(ctx, "pat@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "hunter2!!"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
	if _, err := f.svc.Register(ctx, RegisterInput{Email: "pat@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}

	if _, err := f.svc.Register(ctx, RegisterInput{Email: "pat@example.com", Password: "hunter2!!"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.svc.Register(ctx, RegisterInput{Email: "pat@example.com", Password: "hunter2!!"}); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestResendVerification_NoEnumeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, RegisterInput{Email: "pat@example.com", Password: "hunter2!!"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	before := f.notifier.count()

	// Unknown account: same (void) outcome, no dispatch.
	f.svc.ResendVerification(ctx, "nobody@example.com")
	if f.notifier.count() != before {
		t.Fatal("unknown account must not trigger a dispatch")
	}

	f.svc.ResendVerification(ctx, "pat@example.com")
	if f.notifier.count() != before+1 {
		t.Fatal("known unconfirmed account should get a fresh code")
	}
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, _ := f.svc.Register(ctx, RegisterInput{Email: "pat@example.com", Password: "hunter2!!"})

	// Unknown account: silent, no code.
	f.svc.RequestPasswordReset(ctx, "nobody@example.com")

	f.svc.RequestPasswordReset(ctx, "pat@example.com")
	code := f.notifier.lastCode()

	if err := f.svc.ResetPassword(ctx, "pat@example.com", "000000", "newpassword1"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}

	// The failed attempt consumed the code; request a fresh one.
	f.svc.RequestPasswordReset(ctx, "pat@example.com")
	code = f.notifier.lastCode()
	if err := f.svc.ResetPassword(ctx, "pat@example.com", code, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	u, _ := f.users.GetByID(ctx, id)
	hasher := security.NewHasher(4)
	if hasher.Compare(u.PasswordHash, []byte("newpassword1")) != nil {
		t.Fatal("password not updated")
	}
	if len(f.revoker.revoked) == 0 || f.revoker.revoked[0] != id {
		t.Fatal("password reset must revoke all sessions")
	}
	if !f.activity.has(activitydomain.TypePasswordChanged) {
		t.Fatal("expected a password-changed activity entry")
	}
}
