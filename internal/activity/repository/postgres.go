package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/activity/domain"
)

type entryRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	ActivityType  string    `db:"activity_type"`
	Status        string    `db:"status"`
	IPAddress     string    `db:"ip_address"`
	UserAgent     string    `db:"user_agent"`
	Details       string    `db:"details"`
	FailureReason string    `db:"failure_reason"`
	CreatedAt     time.Time `db:"created_at"`
}

// PostgresRepository persists activity log entries with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an activity log repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends the entry. The entry must have ID set. There is no update or
// delete path; the table is an immutable audit trail.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, activity_type, status, ip_address, user_agent, details, failure_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.UserID, string(e.ActivityType), string(e.Status), e.IPAddress, e.UserAgent,
		e.Details, e.FailureReason, e.CreatedAt)
	return err
}

// ListByUser returns entries for the given user, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.Entry, error) {
	var rows []entryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, activity_type, status, ip_address, user_agent, details, failure_reason, created_at
		FROM activity_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Entry, len(rows))
	for i := range rows {
		row := rows[i]
		out[i] = &domain.Entry{
			ID:            row.ID,
			UserID:        row.UserID,
			ActivityType:  domain.Type(row.ActivityType),
			Status:        domain.Status(row.Status),
			IPAddress:     row.IPAddress,
			UserAgent:     row.UserAgent,
			Details:       row.Details,
			FailureReason: row.FailureReason,
			CreatedAt:     row.CreatedAt,
		}
	}
	return out, nil
}
