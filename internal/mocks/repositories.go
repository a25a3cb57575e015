package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/lead-import-api/internal/models"
)

// MockImportJobRepository is an in-memory implementation of
// ImportJobRepository for tests.
type MockImportJobRepository struct {
	mu   sync.Mutex
	Jobs map[string]*models.ImportJob
	Rows map[string][]*models.ImportRow // jobID → rows, ascending row_number

	CreateError error
	UpdateError error
	GetRowsErr  error
}

func NewMockImportJobRepository() *MockImportJobRepository {
	return &MockImportJobRepository{
		Jobs: make(map[string]*models.ImportJob),
		Rows: make(map[string][]*models.ImportRow),
	}
}

func (m *MockImportJobRepository) CreateWithRows(ctx context.Context, job *models.ImportJob, rows []*models.ImportRow) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	jobCopy := *job
	m.Jobs[job.ID] = &jobCopy

	stored := make([]*models.ImportRow, len(rows))
	for i, row := range rows {
		rowCopy := *row
		stored[i] = &rowCopy
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].RowNumber < stored[j].RowNumber })
	m.Rows[job.ID] = stored
	return nil
}

func (m *MockImportJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	jobCopy := *job
	return &jobCopy, nil
}

func (m *MockImportJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	jobCopy := *job
	m.Jobs[job.ID] = &jobCopy
	return nil
}

func (m *MockImportJobRepository) List(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*models.ImportJob, 0, len(m.Jobs))
	for _, job := range m.Jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *MockImportJobRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Jobs), nil
}

func (m *MockImportJobRepository) GetRows(ctx context.Context, jobID string) ([]*models.ImportRow, error) {
	if m.GetRowsErr != nil {
		return nil, m.GetRowsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]*models.ImportRow, len(m.Rows[jobID]))
	for i, row := range m.Rows[jobID] {
		rowCopy := *row
		rows[i] = &rowCopy
	}
	return rows, nil
}

func (m *MockImportJobRepository) UpdateRowValidation(ctx context.Context, rows []*models.ImportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if stored := m.findRow(row.ID); stored != nil {
			stored.ValidationState = row.ValidationState
			stored.ValidationErrors = row.ValidationErrors
		}
	}
	return nil
}

func (m *MockImportJobRepository) MarkRowCommitted(ctx context.Context, rowID, leadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored := m.findRow(rowID); stored != nil {
		stored.CommittedLeadID = leadID
		stored.SkipReason = ""
	}
	return nil
}

func (m *MockImportJobRepository) MarkRowSkipped(ctx context.Context, rowID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored := m.findRow(rowID); stored != nil {
		stored.SkipReason = reason
	}
	return nil
}

func (m *MockImportJobRepository) StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error {
	rows, err := m.GetRows(ctx, jobID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if state != "" && row.ValidationState != state {
			continue
		}
		if err := callback(row); err != nil {
			return err
		}
	}
	return nil
}

// findRow must be called with the lock held
func (m *MockImportJobRepository) findRow(rowID string) *models.ImportRow {
	for _, rows := range m.Rows {
		for _, row := range rows {
			if row.ID == rowID {
				return row
			}
		}
	}
	return nil
}

// MockLeadRepository is an in-memory implementation of LeadRepository
type MockLeadRepository struct {
	mu    sync.Mutex
	Leads map[string]*models.Lead

	CreateCalls int
	// CreateFunc, when set, intercepts Create for failure injection
	CreateFunc func(ctx context.Context, lead *models.Lead) error
	FindError  error
}

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{
		Leads: make(map[string]*models.Lead),
	}
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()

	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, lead); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	leadCopy := *lead
	m.Leads[lead.ID] = &leadCopy
	return nil
}

func (m *MockLeadRepository) FindByContact(ctx context.Context, normalizedPhone, normalizedEmail string) (*models.Lead, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	if normalizedPhone == "" && normalizedEmail == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.Leads {
		if (normalizedPhone != "" && lead.NormalizedPhone == normalizedPhone) ||
			(normalizedEmail != "" && lead.NormalizedEmail == normalizedEmail) {
			leadCopy := *lead
			return &leadCopy, nil
		}
	}
	return nil, nil
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.Leads[id]
	if !ok {
		return nil, nil
	}
	leadCopy := *lead
	return &leadCopy, nil
}

func (m *MockLeadRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Leads), nil
}
