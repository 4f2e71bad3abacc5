package mfa

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestGenerateTOTPSecret(t *testing.T) {
	secret, uri, err := GenerateTOTPSecret("InvestAccred", "investor@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Errorf("provisioning URI = %q", uri)
	}
	if !strings.Contains(uri, "InvestAccred") {
		t.Errorf("provisioning URI missing issuer: %q", uri)
	}
}

func TestVerifyTOTP(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("InvestAccred", "investor@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period: 30, Skew: 1, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	if !VerifyTOTP(code, secret) {
		t.Error("current code should verify")
	}
	if VerifyTOTP("000000", secret) {
		t.Error("wrong code should not verify")
	}
	if VerifyTOTP("not-a-code", secret) {
		t.Error("malformed code should not verify")
	}
}
