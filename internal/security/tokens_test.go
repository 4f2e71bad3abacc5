package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAccessAndRefresh(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	sessionID, userID := "s1", "u1"

	access, accessJti, exp, err := p.IssueAccess(sessionID, userID)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" || accessJti == "" {
		t.Fatal("access token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	refresh, jti, refreshExp, err := p.IssueRefresh(sessionID, userID)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh == "" || jti == "" {
		t.Fatal("refresh token or jti empty")
	}
	if refreshExp.Before(time.Now()) {
		t.Fatal("refresh expires at in the past")
	}

	sid, jti2, uid, err := p.ValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if sid != sessionID || jti2 != jti || uid != userID {
		t.Errorf("ValidateRefresh: got sessionID=%q jti=%q userID=%q", sid, jti2, uid)
	}
}

func TestTokenProvider_ValidateRefreshInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	_, _, _, err = p.ValidateRefresh("invalid-token")
	if err != ErrInvalidToken {
		t.Errorf("ValidateRefresh invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	sessionID, userID := "s1", "u1"
	access, _, _, err := p.IssueAccess(sessionID, userID)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	sid, uid, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if sid != sessionID || uid != userID {
		t.Errorf("ValidateAccess: got sessionID=%q userID=%q", sid, uid)
	}
}

func TestTokenProvider_MFAToken(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, err := p.IssueMFA("investor@example.com")
	if err != nil {
		t.Fatalf("IssueMFA: %v", err)
	}
	email, err := p.ValidateMFA(token)
	if err != nil {
		t.Fatalf("ValidateMFA: %v", err)
	}
	if email != "investor@example.com" {
		t.Errorf("ValidateMFA email = %q", email)
	}
}

func TestTokenProvider_MFATokenNotUsableElsewhere(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	mfaToken, err := p.IssueMFA("investor@example.com")
	if err != nil {
		t.Fatalf("IssueMFA: %v", err)
	}
	// An MFA continuation token must never validate as an access token.
	if _, uid, err := p.ValidateAccess(mfaToken); err == nil {
		t.Errorf("ValidateAccess accepted MFA token for user %q", uid)
	}

	// Nor the other way around.
	access, _, _, err := p.IssueAccess("s1", "u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateMFA(access); err == nil {
		t.Error("ValidateMFA accepted access token")
	}
}

func TestTokenProvider_ValidateMFAInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateMFA("garbage"); err != ErrInvalidToken {
		t.Errorf("ValidateMFA invalid token: want ErrInvalidToken, got %v", err)
	}
}
