package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/preference/domain"
)

type preferenceRow struct {
	UserID             string    `db:"user_id"`
	TwoFactorEnabled   bool      `db:"two_factor_enabled"`
	TwoFactorMethod    string    `db:"two_factor_method"`
	EmailNotifications bool      `db:"email_notifications"`
	SMSNotifications   bool      `db:"sms_notifications"`
	Theme              string    `db:"theme"`
	Language           string    `db:"language"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// PostgresRepository persists preferences with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a preference repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the stored preference for userID, or defaults when no row exists.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*domain.Preference, error) {
	var row preferenceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, two_factor_enabled, two_factor_method, email_notifications,
			sms_notifications, theme, language, updated_at
		FROM user_preferences WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Default(userID), nil
		}
		return nil, err
	}
	return &domain.Preference{
		UserID:             row.UserID,
		TwoFactorEnabled:   row.TwoFactorEnabled,
		TwoFactorMethod:    domain.TwoFactorMethod(row.TwoFactorMethod),
		EmailNotifications: row.EmailNotifications,
		SMSNotifications:   row.SMSNotifications,
		Theme:              row.Theme,
		Language:           row.Language,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

// Upsert creates or replaces the preference row for p.UserID.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.Preference) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, two_factor_enabled, two_factor_method,
			email_notifications, sms_notifications, theme, language, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			two_factor_enabled = EXCLUDED.two_factor_enabled,
			two_factor_method = EXCLUDED.two_factor_method,
			email_notifications = EXCLUDED.email_notifications,
			sms_notifications = EXCLUDED.sms_notifications,
			theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			updated_at = NOW()`,
		p.UserID, p.TwoFactorEnabled, string(p.TwoFactorMethod),
		p.EmailNotifications, p.SMSNotifications, p.Theme, p.Language)
	return err
}

// SetTwoFactor updates the two-factor flag and method together, creating the
// row with defaults if missing.
func (r *PostgresRepository) SetTwoFactor(ctx context.Context, userID string, enabled bool, method domain.TwoFactorMethod) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, two_factor_enabled, two_factor_method, updated_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			two_factor_enabled = EXCLUDED.two_factor_enabled,
			two_factor_method = EXCLUDED.two_factor_method,
			updated_at = NOW()`,
		userID, enabled, string(method))
	return err
}
