package service

import (
	"context"
	"fmt"

	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// jobService is the concrete implementation of JobService
type jobService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newJobService creates a new JobService
func newJobService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *jobService {
	return &jobService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "job").Logger(),
	}
}

// GetJob retrieves a job by ID
func (s *jobService) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	job, err := s.repos.Job.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, models.ErrJobNotFound
	}
	return job, nil
}

// ListJobs retrieves recent jobs newest first. The limit is clamped to
// the configured page bounds; zero selects the default page size.
func (s *jobService) ListJobs(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	if limit <= 0 {
		limit = s.cfg.Import.ListPageSize
	}
	if limit > s.cfg.Import.ListPageMax {
		limit = s.cfg.Import.ListPageMax
	}
	return s.repos.Job.List(ctx, limit)
}

// StreamRows streams a job's rows for the per-row operator report
func (s *jobService) StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error {
	job, err := s.repos.Job.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return models.ErrJobNotFound
	}
	return s.repos.Job.StreamRows(ctx, jobID, state, callback)
}

// CountJobs returns the total number of jobs
func (s *jobService) CountJobs(ctx context.Context) (int, error) {
	return s.repos.Job.Count(ctx)
}

// CountLeads returns the total number of leads
func (s *jobService) CountLeads(ctx context.Context) (int, error) {
	return s.repos.Lead.Count(ctx)
}
