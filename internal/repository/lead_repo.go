package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lead-import-api/internal/database"
	"github.com/lead-import-api/internal/models"
)

// leadRepo is the concrete implementation of LeadRepository
type leadRepo struct {
	db *database.DB
}

// NewLeadRepo creates a new lead repository
func NewLeadRepo(db *database.DB) LeadRepository {
	return &leadRepo{db: db}
}

const leadColumns = `id, name, phone, email, preferred_centre, programme_interest,
	normalized_phone, normalized_email, source_job_id, created_at, updated_at`

// Create inserts a new lead
func (r *leadRepo) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, name, phone, email, preferred_centre, programme_interest,
			normalized_phone, normalized_email, source_job_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.PreferredCentre,
		lead.ProgrammeInterest, lead.NormalizedPhone, lead.NormalizedEmail,
		nullString(lead.SourceJobID), now, now,
	)
	return err
}

// FindByContact retrieves a lead whose normalized phone or email matches.
// Empty identities never match: a lead without contact details cannot
// collide with anything.
func (r *leadRepo) FindByContact(ctx context.Context, normalizedPhone, normalizedEmail string) (*models.Lead, error) {
	if normalizedPhone == "" && normalizedEmail == "" {
		return nil, nil
	}

	query := `
		SELECT ` + leadColumns + ` FROM leads
		WHERE ($1 <> '' AND normalized_phone = $1)
		   OR ($2 <> '' AND normalized_email = $2)
		ORDER BY created_at
		LIMIT 1
	`
	return r.scanLead(r.db.QueryRowContext(ctx, query, normalizedPhone, normalizedEmail))
}

// GetByID retrieves a lead by ID
func (r *leadRepo) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.scanLead(r.db.QueryRowContext(ctx, query, id))
}

// Count returns the total number of leads
func (r *leadRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&count)
	return count, err
}

func (r *leadRepo) scanLead(s scanner) (*models.Lead, error) {
	var lead models.Lead
	var sourceJobID sql.NullString

	err := s.Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.PreferredCentre,
		&lead.ProgrammeInterest, &lead.NormalizedPhone, &lead.NormalizedEmail,
		&sourceJobID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lead.SourceJobID = sourceJobID.String
	return &lead, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
