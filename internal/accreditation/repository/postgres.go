package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"investaccred/backend/internal/accreditation/domain"
)

type accreditationRow struct {
	ID                         string        `db:"id"`
	UserID                     string        `db:"user_id"`
	InvestorClassification     string        `db:"investor_classification"`
	Status                     string        `db:"status"`
	IncomeLevel                sql.NullInt64 `db:"income_level"`
	NetWorth                   sql.NullInt64 `db:"net_worth"`
	YearsInvesting             int           `db:"years_investing"`
	HasPriorPrivateInvestments bool          `db:"has_prior_private_investments"`
	InvestmentExperience       string        `db:"investment_experience"`
	EntityName                 string        `db:"entity_name"`
	EntityType                 string        `db:"entity_type"`
	EntityRegistrationNumber   string        `db:"entity_registration_number"`
	EntityRegistrationDate     sql.NullTime  `db:"entity_registration_date"`
	CertificationMethod        string        `db:"certification_method"`
	ReviewNotes                string        `db:"review_notes"`
	ApprovedAt                 sql.NullTime  `db:"approved_at"`
	ApprovedBy                 string        `db:"approved_by"`
	ExpiresAt                  sql.NullTime  `db:"expires_at"`
	InvestmentLimit            sql.NullInt64 `db:"investment_limit"`
	LimitUnbounded             bool          `db:"limit_unbounded"`
	OverrideEnabled            bool          `db:"override_enabled"`
	OverrideBy                 string        `db:"override_by"`
	Version                    int64         `db:"version"`
	CreatedAt                  time.Time     `db:"created_at"`
	LastUpdatedAt              time.Time     `db:"last_updated_at"`
}

const accreditationColumns = `id, user_id, investor_classification, status, income_level, net_worth,
	years_investing, has_prior_private_investments, investment_experience, entity_name, entity_type,
	entity_registration_number, entity_registration_date, certification_method, review_notes,
	approved_at, approved_by, expires_at, investment_limit, limit_unbounded, override_enabled,
	override_by, version, created_at, last_updated_at`

// PostgresRepository persists accreditations with sqlx.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an accreditation repository backed by db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the accreditation for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Accreditation, error) {
	var row accreditationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+accreditationColumns+` FROM accreditations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToAccreditation(&row), nil
}

// GetByUserID returns the user's accreditation, or nil if none exists.
// The user_id column is unique, so at most one row can match.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Accreditation, error) {
	var row accreditationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+accreditationColumns+` FROM accreditations WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToAccreditation(&row), nil
}

// Create persists the accreditation. The entity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Accreditation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accreditations (id, user_id, investor_classification, status, income_level, net_worth,
			years_investing, has_prior_private_investments, investment_experience, entity_name, entity_type,
			entity_registration_number, entity_registration_date, certification_method, review_notes,
			approved_at, approved_by, expires_at, investment_limit, limit_unbounded, override_enabled,
			override_by, version, created_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25)`,
		a.ID, a.UserID, string(a.InvestorClassification), string(a.Status),
		nullMoney(a.IncomeLevel), nullMoney(a.NetWorth),
		a.YearsInvesting, a.HasPriorPrivateInvestments, a.InvestmentExperience,
		a.EntityName, a.EntityType, a.EntityRegistrationNumber, nullTime(a.EntityRegistrationDate),
		a.CertificationMethod, a.ReviewNotes, nullTime(a.ApprovedAt), a.ApprovedBy, nullTime(a.ExpiresAt),
		limitAmount(a.InvestmentLimit), limitUnbounded(a.InvestmentLimit),
		a.OverrideEnabled, a.OverrideBy, a.Version, a.CreatedAt, a.LastUpdatedAt)
	return err
}

// Update persists all mutable fields guarded by a.Version, bumping the
// version on success. A version mismatch returns ErrVersionConflict.
func (r *PostgresRepository) Update(ctx context.Context, a *domain.Accreditation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accreditations SET
			investor_classification = $1, status = $2, income_level = $3, net_worth = $4,
			years_investing = $5, has_prior_private_investments = $6, investment_experience = $7,
			entity_name = $8, entity_type = $9, entity_registration_number = $10,
			entity_registration_date = $11, certification_method = $12, review_notes = $13,
			approved_at = $14, approved_by = $15, expires_at = $16,
			investment_limit = $17, limit_unbounded = $18, override_enabled = $19, override_by = $20,
			version = version + 1, last_updated_at = $21
		WHERE id = $22 AND version = $23`,
		string(a.InvestorClassification), string(a.Status),
		nullMoney(a.IncomeLevel), nullMoney(a.NetWorth),
		a.YearsInvesting, a.HasPriorPrivateInvestments, a.InvestmentExperience,
		a.EntityName, a.EntityType, a.EntityRegistrationNumber, nullTime(a.EntityRegistrationDate),
		a.CertificationMethod, a.ReviewNotes, nullTime(a.ApprovedAt), a.ApprovedBy, nullTime(a.ExpiresAt),
		limitAmount(a.InvestmentLimit), limitUnbounded(a.InvestmentLimit),
		a.OverrideEnabled, a.OverrideBy, a.LastUpdatedAt, a.ID, a.Version)
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
	a.Version++
	return nil
}

func rowToAccreditation(row *accreditationRow) *domain.Accreditation {
	a := &domain.Accreditation{
		ID:                         row.ID,
		UserID:                     row.UserID,
		InvestorClassification:     domain.InvestorClassification(row.InvestorClassification),
		Status:                     domain.Status(row.Status),
		YearsInvesting:             row.YearsInvesting,
		HasPriorPrivateInvestments: row.HasPriorPrivateInvestments,
		InvestmentExperience:       row.InvestmentExperience,
		EntityName:                 row.EntityName,
		EntityType:                 row.EntityType,
		EntityRegistrationNumber:   row.EntityRegistrationNumber,
		CertificationMethod:        row.CertificationMethod,
		ReviewNotes:                row.ReviewNotes,
		ApprovedBy:                 row.ApprovedBy,
		OverrideEnabled:            row.OverrideEnabled,
		OverrideBy:                 row.OverrideBy,
		Version:                    row.Version,
		CreatedAt:                  row.CreatedAt,
		LastUpdatedAt:              row.LastUpdatedAt,
	}
	if row.IncomeLevel.Valid {
		v := domain.Money(row.IncomeLevel.Int64)
		a.IncomeLevel = &v
	}
	if row.NetWorth.Valid {
		v := domain.Money(row.NetWorth.Int64)
		a.NetWorth = &v
	}
	if row.EntityRegistrationDate.Valid {
		t := row.EntityRegistrationDate.Time
		a.EntityRegistrationDate = &t
	}
	if row.ApprovedAt.Valid {
		t := row.ApprovedAt.Time
		a.ApprovedAt = &t
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		a.ExpiresAt = &t
	}
	if row.LimitUnbounded {
		a.InvestmentLimit = &domain.Limit{Unbounded: true}
	} else if row.InvestmentLimit.Valid {
		a.InvestmentLimit = &domain.Limit{Amount: domain.Money(row.InvestmentLimit.Int64)}
	}
	return a
}

func nullMoney(m *domain.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func limitAmount(l *domain.Limit) sql.NullInt64 {
	if l == nil || l.Unbounded {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(l.Amount), Valid: true}
}

func limitUnbounded(l *domain.Limit) bool {
	return l != nil && l.Unbounded
}
