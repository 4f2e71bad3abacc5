package domain

import "time"

// Session represents one logged-in device/browser instance, backed by an
// issued refresh token. Revocation is one-way: IsActive never returns to true.
type Session struct {
	ID               string
	UserID           string
	RefreshJti       string // current refresh token jti for rotation
	RefreshTokenHash string // SHA-256 hash of current refresh token
	IssuedAt         time.Time
	ExpiresAt        time.Time
	LastActivityAt   *time.Time
	IPAddress        string
	UserAgent        string
	IsActive         bool
	RevokedAt        *time.Time // nil when not revoked
	RevokedReason    string
	CreatedAt        time.Time
}

// Usable reports whether the session can mint new tokens at the given time.
func (s *Session) Usable(now time.Time) bool {
	return s.IsActive && s.RevokedAt == nil && s.ExpiresAt.After(now)
}
