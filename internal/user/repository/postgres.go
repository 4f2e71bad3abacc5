package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/user/domain"
)

// ErrVersionConflict is returned when an optimistic-concurrency update loses the race.
var ErrVersionConflict = errors.New("user row was modified concurrently")

type userRow struct {
	ID                  string       `db:"id"`
	Email               string       `db:"email"`
	Name                string       `db:"name"`
	Phone               string       `db:"phone"`
	PasswordHash        string       `db:"password_hash"`
	EmailConfirmed      bool         `db:"email_confirmed"`
	PhoneConfirmed      bool         `db:"phone_confirmed"`
	TwoFactorEnabled    bool         `db:"two_factor_enabled"`
	TOTPSecret          string       `db:"totp_secret"`
	FailedLoginAttempts int          `db:"failed_login_attempts"`
	LockedUntil         sql.NullTime `db:"locked_until"`
	LastLoginAt         sql.NullTime `db:"last_login_at"`
	Version             int64        `db:"version"`
	CreatedAt           time.Time    `db:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"`
}

const userColumns = `id, email, name, phone, password_hash, email_confirmed, phone_confirmed,
	two_factor_enabled, totp_secret, failed_login_attempts, locked_until, last_login_at,
	version, created_at, updated_at`

// PostgresRepository persists users with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToUser(&row), nil
}

// GetByEmail returns the user for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToUser(&row), nil
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, password_hash, email_confirmed, phone_confirmed,
			two_factor_enabled, totp_secret, failed_login_attempts, locked_until, last_login_at,
			version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		u.ID, u.Email, u.Name, u.Phone, u.PasswordHash, u.EmailConfirmed, u.PhoneConfirmed,
		u.TwoFactorEnabled, u.TOTPSecret, u.FailedLoginAttempts, timeToNull(u.LockedUntil),
		timeToNull(u.LastLoginAt), u.Version, u.CreatedAt, u.UpdatedAt)
	return err
}

// Update persists mutable user fields, bumping the version column. Returns
// ErrVersionConflict when the stored version no longer matches u.Version.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email=$2, name=$3, phone=$4, password_hash=$5, email_confirmed=$6,
			phone_confirmed=$7, two_factor_enabled=$8, totp_secret=$9, failed_login_attempts=$10,
			locked_until=$11, last_login_at=$12, version=version+1, updated_at=NOW()
		WHERE id=$1 AND version=$13`,
		u.ID, u.Email, u.Name, u.Phone, u.PasswordHash, u.EmailConfirmed,
		u.PhoneConfirmed, u.TwoFactorEnabled, u.TOTPSecret, u.FailedLoginAttempts,
		timeToNull(u.LockedUntil), timeToNull(u.LastLoginAt), u.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	u.Version++
	return nil
}

// IncrementFailedLogins bumps the failed-login counter for the given user,
// locking the account for 15 minutes once the fifth consecutive failure lands.
func (r *PostgresRepository) IncrementFailedLogins(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= 5
				THEN NOW() + INTERVAL '15 minutes' ELSE locked_until END,
			updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// ResetFailedLogins clears the failed-login counter and stamps the last login time.
func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, id string, lastLoginAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = NOW() WHERE id = $1`,
		id, lastLoginAt)
	return err
}

// SetTwoFactor flips the two-factor flag on the identity record.
func (r *PostgresRepository) SetTwoFactor(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	return err
}

// SetTOTPSecret stores the authenticator secret for the given user.
func (r *PostgresRepository) SetTOTPSecret(ctx context.Context, id, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $2, updated_at = NOW() WHERE id = $1`, id, secret)
	return err
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullToTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

func rowToUser(row *userRow) *domain.User {
	if row == nil {
		return nil
	}
	return &domain.User{
		ID:                  row.ID,
		Email:               row.Email,
		Name:                row.Name,
		Phone:               row.Phone,
		PasswordHash:        row.PasswordHash,
		EmailConfirmed:      row.EmailConfirmed,
		PhoneConfirmed:      row.PhoneConfirmed,
		TwoFactorEnabled:    row.TwoFactorEnabled,
		TOTPSecret:          row.TOTPSecret,
		FailedLoginAttempts: row.FailedLoginAttempts,
		LockedUntil:         nullToTime(row.LockedUntil),
		LastLoginAt:         nullToTime(row.LastLoginAt),
		Version:             row.Version,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}
