package repository

import (
	"context"

	"github.com/lead-import-api/internal/database"
	"github.com/lead-import-api/internal/models"
)

// ImportJobRepository defines the interface for job and row persistence.
// Rows form an owning aggregate under the job: they are created once with
// it, addressed by job id + row number, and only ever annotated afterwards.
type ImportJobRepository interface {
	CreateWithRows(ctx context.Context, job *models.ImportJob, rows []*models.ImportRow) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	Update(ctx context.Context, job *models.ImportJob) error
	List(ctx context.Context, limit int) ([]*models.ImportJob, error)
	Count(ctx context.Context) (int, error)

	// GetRows returns the full row set in ascending row_number order.
	GetRows(ctx context.Context, jobID string) ([]*models.ImportRow, error)
	UpdateRowValidation(ctx context.Context, rows []*models.ImportRow) error
	MarkRowCommitted(ctx context.Context, rowID, leadID string) error
	MarkRowSkipped(ctx context.Context, rowID, reason string) error
	StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error
}

// LeadRepository is the lead sink the commit engine writes to: a
// duplicate lookup by normalized contact, and creation.
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByContact(ctx context.Context, normalizedPhone, normalizedEmail string) (*models.Lead, error)
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Count(ctx context.Context) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Job  ImportJobRepository
	Lead LeadRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Job:  NewImportJobRepo(db),
		Lead: NewLeadRepo(db),
	}
}
