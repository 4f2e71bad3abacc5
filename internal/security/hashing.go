package security

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a bcrypt hash of a random string, compared against when the
// target account does not exist so lookups take the same time either way.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4-31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they
// match; returns an error (including bcrypt.ErrMismatchedHashAndPassword)
// if they do not or on invalid hash.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// DummyCompare burns a bcrypt comparison against a fixed hash. Called on
// login for unknown emails so response timing does not reveal whether the
// account exists. Always returns a mismatch error.
func (h *Hasher) DummyCompare(password []byte) error {
	err := bcrypt.CompareHashAndPassword([]byte(dummyHash), password)
	if err == nil {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return err
}
