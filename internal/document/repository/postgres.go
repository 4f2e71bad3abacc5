package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/document/domain"
)

type documentRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	DocumentType       string    `db:"document_type"`
	FileName           string    `db:"file_name"`
	VerificationStatus string    `db:"verification_status"`
	UploadedAt         time.Time `db:"uploaded_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// PostgresRepository persists document metadata with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a document repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserID returns all documents uploaded by the given user.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.Document, error) {
	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, document_type, file_name, verification_status, uploaded_at, updated_at
		FROM documents WHERE user_id = $1 ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Document, len(rows))
	for i := range rows {
		out[i] = rowToDocument(&rows[i])
	}
	return out, nil
}

// GetByID returns the document for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var row documentRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, user_id, document_type, file_name, verification_status, uploaded_at, updated_at
		FROM documents WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToDocument(&row), nil
}

// Update persists the document's mutable metadata (type, name, verification status).
func (r *PostgresRepository) Update(ctx context.Context, d *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET document_type = $2, file_name = $3, verification_status = $4, updated_at = NOW()
		WHERE id = $1`,
		d.ID, string(d.DocumentType), d.FileName, string(d.VerificationStatus))
	return err
}

func rowToDocument(row *documentRow) *domain.Document {
	return &domain.Document{
		ID:                 row.ID,
		UserID:             row.UserID,
		DocumentType:       domain.Type(row.DocumentType),
		FileName:           row.FileName,
		VerificationStatus: domain.VerificationStatus(row.VerificationStatus),
		UploadedAt:         row.UploadedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
