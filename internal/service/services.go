package service

import (
	"context"

	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// ImportService drives the three pipeline stages. Each call is a single
// synchronous operation; there is no background processor.
type ImportService interface {
	CreatePreview(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error)
	Validate(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error)
	Commit(ctx context.Context, jobID string) (*models.CommitResult, error)
}

// JobService exposes read-only job history and reporting
type JobService interface {
	GetJob(ctx context.Context, id string) (*models.ImportJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.ImportJob, error)
	StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error
	CountJobs(ctx context.Context) (int, error)
	CountLeads(ctx context.Context) (int, error)
}

// Services holds all service interfaces
type Services struct {
	Import ImportService
	Job    JobService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Import: newImportService(repos, cfg, log),
		Job:    newJobService(repos, cfg, log),
	}
}
