package domain

import (
	"errors"
	"time"
)

// User is the core platform user entity. Credentials, confirmation flags, and
// lockout counters live here; investment accreditation is a separate entity.
type User struct {
	ID                  string
	Email               string
	Name                string
	Phone               string
	PasswordHash        string
	EmailConfirmed      bool
	PhoneConfirmed      bool
	TwoFactorEnabled    bool
	TOTPSecret          string // base32 authenticator secret; empty until setup
	FailedLoginAttempts int
	LockedUntil         *time.Time // nil when not locked out
	LastLoginAt         *time.Time
	Version             int64 // optimistic concurrency token
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLockedOut reports whether the user is locked out at the given time.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
