package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/session/domain"
)

type sessionRow struct {
	ID               string       `db:"id"`
	UserID           string       `db:"user_id"`
	RefreshJti       string       `db:"refresh_jti"`
	RefreshTokenHash string       `db:"refresh_token_hash"`
	IssuedAt         time.Time    `db:"issued_at"`
	ExpiresAt        time.Time    `db:"expires_at"`
	LastActivityAt   sql.NullTime `db:"last_activity_at"`
	IPAddress        string       `db:"ip_address"`
	UserAgent        string       `db:"user_agent"`
	IsActive         bool         `db:"is_active"`
	RevokedAt        sql.NullTime `db:"revoked_at"`
	RevokedReason    string       `db:"revoked_reason"`
	CreatedAt        time.Time    `db:"created_at"`
}

const sessionColumns = `id, user_id, refresh_jti, refresh_token_hash, issued_at, expires_at,
	last_activity_at, ip_address, user_agent, is_active, revoked_at, revoked_reason, created_at`

// PostgresRepository persists sessions with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToSession(&row), nil
}

// GetByRefreshJti returns the session bound to the given refresh token jti, or nil if not found.
func (r *PostgresRepository) GetByRefreshJti(ctx context.Context, jti string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM user_sessions WHERE refresh_jti = $1`, jti)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToSession(&row), nil
}

// ListByUser returns all sessions for the given user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Session, len(rows))
	for i := range rows {
		out[i] = rowToSession(&rows[i])
	}
	return out, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_sessions (id, user_id, refresh_jti, refresh_token_hash, issued_at, expires_at,
			last_activity_at, ip_address, user_agent, is_active, revoked_at, revoked_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		s.ID, s.UserID, s.RefreshJti, s.RefreshTokenHash, s.IssuedAt, s.ExpiresAt,
		timeToNull(s.LastActivityAt), s.IPAddress, s.UserAgent, s.IsActive,
		timeToNull(s.RevokedAt), s.RevokedReason, s.CreatedAt)
	return err
}

// Revoke marks the session as inactive with the given reason. Already-revoked
// sessions are left untouched so the original reason and timestamp survive.
func (r *PostgresRepository) Revoke(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions SET is_active = FALSE, revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND is_active = TRUE`,
		id, time.Now().UTC(), reason)
	return err
}

// RevokeAllByUser deactivates every active session for the user in one statement.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions SET is_active = FALSE, revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND is_active = TRUE`,
		userID, time.Now().UTC(), reason)
	return err
}

// RevokeAllExcept deactivates every active session for the user except keepID.
func (r *PostgresRepository) RevokeAllExcept(ctx context.Context, userID, keepID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE user_id = $1 AND id <> $2 AND is_active = TRUE`,
		userID, keepID, time.Now().UTC(), reason)
	return err
}

// UpdateLastActivity sets the session's last-activity timestamp.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET last_activity_at = $2 WHERE id = $1`, id, at)
	return err
}

// UpdateRefreshToken rotates the session's refresh token jti and hash. The
// is_active guard keeps a racing revocation from being overwritten.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions SET refresh_jti = $2, refresh_token_hash = $3
		WHERE id = $1 AND is_active = TRUE`,
		sessionID, jti, refreshTokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("session is not active")
	}
	return nil
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

func rowToSession(row *sessionRow) *domain.Session {
	if row == nil {
		return nil
	}
	return &domain.Session{
		ID:               row.ID,
		UserID:           row.UserID,
		RefreshJti:       row.RefreshJti,
		RefreshTokenHash: row.RefreshTokenHash,
		IssuedAt:         row.IssuedAt,
		ExpiresAt:        row.ExpiresAt,
		LastActivityAt:   nullToTime(row.LastActivityAt),
		IPAddress:        row.IPAddress,
		UserAgent:        row.UserAgent,
		IsActive:         row.IsActive,
		RevokedAt:        nullToTime(row.RevokedAt),
		RevokedReason:    row.RevokedReason,
		CreatedAt:        row.CreatedAt,
	}
}
