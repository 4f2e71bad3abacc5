package domain

import "time"

// TwoFactorMethod is the user's configured second factor.
type TwoFactorMethod string

const (
	MethodSMS           TwoFactorMethod = "SMS"
	MethodEmail         TwoFactorMethod = "Email"
	MethodAuthenticator TwoFactorMethod = "Authenticator"
)

// Valid reports whether m is one of the supported methods.
func (m TwoFactorMethod) Valid() bool {
	switch m {
	case MethodSMS, MethodEmail, MethodAuthenticator:
		return true
	}
	return false
}

// Preference holds per-user settings. One row per user; defaults are applied
// on first read when no row exists yet.
type Preference struct {
	UserID             string
	TwoFactorEnabled   bool
	TwoFactorMethod    TwoFactorMethod // empty until two-factor setup completes
	EmailNotifications bool
	SMSNotifications   bool
	Theme              string
	Language           string
	UpdatedAt          time.Time
}

// Default returns the preference defaults for a user with no stored row.
func Default(userID string) *Preference {
	return &Preference{
		UserID:             userID,
		EmailNotifications: true,
		Theme:              "light",
		Language:           "en",
	}
}
