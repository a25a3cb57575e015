package mocks

import (
	"context"

	"github.com/lead-import-api/internal/models"
)

// MockImportService is a mock implementation of service.ImportService
type MockImportService struct {
	PreviewFunc  func(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error)
	ValidateFunc func(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error)
	CommitFunc   func(ctx context.Context, jobID string) (*models.CommitResult, error)

	PreviewCalls  int
	ValidateCalls int
	CommitCalls   int
}

func NewMockImportService() *MockImportService {
	return &MockImportService{}
}

func (m *MockImportService) CreatePreview(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error) {
	m.PreviewCalls++
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, req, data)
	}
	return &models.PreviewResponse{Job: &models.ImportJob{ID: "mock-job", Status: models.JobStatusPreview}}, nil
}

func (m *MockImportService) Validate(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error) {
	m.ValidateCalls++
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, jobID, mapping)
	}
	return &models.ValidateResult{Job: &models.ImportJob{ID: jobID, Status: models.JobStatusValidated}}, nil
}

func (m *MockImportService) Commit(ctx context.Context, jobID string) (*models.CommitResult, error) {
	m.CommitCalls++
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, jobID)
	}
	return &models.CommitResult{Job: &models.ImportJob{ID: jobID, Status: models.JobStatusCommitted}}, nil
}

// MockJobService is a mock implementation of service.JobService
type MockJobService struct {
	Jobs      map[string]*models.ImportJob
	JobRows   map[string][]*models.ImportRow
	LeadCount int
}

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:    make(map[string]*models.ImportJob),
		JobRows: make(map[string][]*models.ImportRow),
	}
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	job, ok := m.Jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	return job, nil
}

func (m *MockJobService) ListJobs(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	jobs := make([]*models.ImportJob, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		jobs = append(jobs, job)
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *MockJobService) StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error {
	if _, ok := m.Jobs[jobID]; !ok {
		return models.ErrJobNotFound
	}
	for _, row := range m.JobRows[jobID] {
		if state != "" && row.ValidationState != state {
			continue
		}
		if err := callback(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJobService) CountJobs(ctx context.Context) (int, error) {
	return len(m.Jobs), nil
}

func (m *MockJobService) CountLeads(ctx context.Context) (int, error) {
	return m.LeadCount, nil
}
