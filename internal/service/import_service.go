package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/decoder"
	"github.com/lead-import-api/internal/mapper"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/repository"
	"github.com/lead-import-api/internal/validation"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger

	// commitLocks serializes Commit calls per job. Combined with the
	// status/committed_lead_id idempotency check this prevents a
	// double-click or network retry from double-creating leads.
	commitLocks sync.Map // jobID → *sync.Mutex
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// CreatePreview decodes the upload, settles the column mapping and
// persists the job with a snapshot of every raw row, so later stages are
// reproducible even if the original upload is discarded. Decode failures
// abort before anything is persisted.
func (s *importService) CreatePreview(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error) {
	headers, rawRows, err := decoder.Decode(data, req.Source)
	if err != nil {
		return nil, err
	}

	mapping := mapper.ProposeMapping(headers)
	if req.Mapping != nil {
		mapping = *req.Mapping
	}

	now := time.Now()
	job := &models.ImportJob{
		ID:       uuid.New().String(),
		Source:   req.Source,
		Filename: req.Filename,
		Headers:  headers,
		Mapping:  mapping,
		Status:   models.JobStatusPreview,
		Summary: models.Summary{
			PreviewCount: len(rawRows),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	rows := make([]*models.ImportRow, len(rawRows))
	for i, raw := range rawRows {
		rows[i] = &models.ImportRow{
			ID:              uuid.New().String(),
			JobID:           job.ID,
			RowNumber:       i + 1,
			Raw:             raw,
			ValidationState: models.RowStatePending,
		}
	}

	if err := s.repos.Job.CreateWithRows(ctx, job, rows); err != nil {
		return nil, fmt.Errorf("persist preview: %w", err)
	}

	var warnings []string
	if !mapping.IsComplete() {
		warnings = append(warnings, models.ErrMappingIncomplete.Error())
	}

	previewRows := rows
	if len(previewRows) > s.cfg.Import.PreviewRows {
		previewRows = previewRows[:s.cfg.Import.PreviewRows]
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("source", string(job.Source)).
		Str("file", job.Filename).
		Int("rows", len(rows)).
		Msg("Preview job created")

	return &models.PreviewResponse{
		Job:         job,
		Mapping:     mapping,
		PreviewRows: previewRows,
		Warnings:    warnings,
	}, nil
}

// Validate (re)classifies every stored row under the job's mapping. The
// first successful call moves the job PREVIEW → VALIDATED; repeat calls
// recompute in place and may flip rows if the mapping changed. A job
// whose every row is invalid still validates; zero valid rows is a
// condition for the operator, not an error.
func (s *importService) Validate(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error) {
	job, err := s.repos.Job.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, models.ErrJobNotFound
	}
	if job.Status == models.JobStatusFailed {
		return nil, models.ErrJobFailed
	}

	if mapping != nil {
		job.Mapping = *mapping
	}
	if !job.Mapping.IsComplete() {
		return nil, models.ErrMappingIncomplete
	}

	rows, err := s.repos.Job.GetRows(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}

	validCount, invalidCount := 0, 0
	for _, row := range rows {
		state, reasons := validation.ValidateRow(row.Raw, job.Mapping)
		row.ValidationState = state
		row.ValidationErrors = reasons
		if state == models.RowStateValid {
			validCount++
		} else {
			invalidCount++
		}
	}

	if err := s.repos.Job.UpdateRowValidation(ctx, rows); err != nil {
		return nil, fmt.Errorf("store row validation: %w", err)
	}

	job.Summary.ValidCount = validCount
	job.Summary.InvalidCount = invalidCount
	// A COMMITTED job may be re-validated defensively; its status and
	// commit counts stay untouched.
	if job.Status.CanTransitionTo(models.JobStatusValidated) {
		job.Status = models.JobStatusValidated
	}
	if err := s.repos.Job.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}

	s.log.Info().
		Str("job_id", job.ID).
		Int("valid", validCount).
		Int("invalid", invalidCount).
		Msg("Validation completed")

	return &models.ValidateResult{
		Job:          job,
		ValidCount:   validCount,
		InvalidCount: invalidCount,
	}, nil
}

// Commit turns valid rows into durable leads. Rows are processed in
// ascending row number so that when two rows collide on a contact, the
// lower-numbered row wins the created outcome. Per-row failures are
// recorded as skips and never abort the remaining rows.
func (s *importService) Commit(ctx context.Context, jobID string) (*models.CommitResult, error) {
	lock := s.lockFor(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.repos.Job.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, models.ErrJobNotFound
	}

	switch job.Status {
	case models.JobStatusPreview:
		return nil, models.ErrNotValidated
	case models.JobStatusFailed:
		return nil, models.ErrJobFailed
	case models.JobStatusCommitted:
		// Duplicate submission: return the recorded counts, create nothing.
		s.log.Info().Str("job_id", job.ID).Msg("Commit repeated on committed job")
		return &models.CommitResult{
			Job:          job,
			CreatedCount: job.Summary.CreatedCount,
			SkippedCount: job.Summary.SkippedCount,
		}, nil
	}

	rows, err := s.repos.Job.GetRows(ctx, jobID)
	if err != nil {
		s.markFailed(ctx, job)
		return nil, fmt.Errorf("load rows: %w", err)
	}

	created, skipped := 0, 0
	seenPhones := make(map[string]bool)
	seenEmails := make(map[string]bool)

	for _, row := range rows {
		if row.ValidationState != models.RowStateValid {
			continue
		}

		lead := s.buildLead(job, row)

		// Already committed on a previous, interrupted run: count it,
		// keep its contact in the intra-job dedup set, create nothing.
		if row.CommittedLeadID != "" {
			created++
			rememberContact(seenPhones, seenEmails, lead)
			continue
		}

		if (lead.NormalizedPhone != "" && seenPhones[lead.NormalizedPhone]) ||
			(lead.NormalizedEmail != "" && seenEmails[lead.NormalizedEmail]) {
			skipped += s.skipRow(ctx, job, row, models.ReasonDuplicateContact)
			continue
		}

		if lead.HasContact() {
			existing, err := s.repos.Lead.FindByContact(ctx, lead.NormalizedPhone, lead.NormalizedEmail)
			if err != nil {
				// Without a trustworthy duplicate answer we cannot
				// safely create; the existing lead must not be overwritten.
				skipped += s.skipRow(ctx, job, row, fmt.Sprintf("%s: duplicate check: %v", models.ReasonLeadCreateFailed, err))
				continue
			}
			if existing != nil {
				skipped += s.skipRow(ctx, job, row, models.ReasonDuplicateContact)
				continue
			}
		}

		if err := s.repos.Lead.Create(ctx, lead); err != nil {
			skipped += s.skipRow(ctx, job, row, fmt.Sprintf("%s: %v", models.ReasonLeadCreateFailed, err))
			continue
		}

		if err := s.repos.Job.MarkRowCommitted(ctx, row.ID, lead.ID); err != nil {
			// The lead exists; losing the annotation only costs an extra
			// dedup hit on retry.
			s.log.Error().Err(err).Str("row_id", row.ID).Msg("Failed to record committed lead on row")
		}
		row.CommittedLeadID = lead.ID
		rememberContact(seenPhones, seenEmails, lead)
		created++
	}

	job.Summary.CreatedCount = created
	job.Summary.SkippedCount = skipped
	job.Status = models.JobStatusCommitted
	if err := s.repos.Job.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}

	s.log.Info().
		Str("job_id", job.ID).
		Int("created", created).
		Int("skipped", skipped).
		Msg("Commit completed")

	return &models.CommitResult{
		Job:          job,
		CreatedCount: created,
		SkippedCount: skipped,
	}, nil
}

// buildLead converts a raw row into a canonical lead record via the
// job's mapping.
func (s *importService) buildLead(job *models.ImportJob, row *models.ImportRow) *models.Lead {
	phone := job.Mapping.Resolve(models.FieldPhone, row.Raw)
	email := job.Mapping.Resolve(models.FieldEmail, row.Raw)
	return &models.Lead{
		ID:                uuid.New().String(),
		Name:              job.Mapping.Resolve(models.FieldPrimaryName, row.Raw),
		Phone:             phone,
		Email:             email,
		PreferredCentre:   job.Mapping.Resolve(models.FieldPreferredCentre, row.Raw),
		ProgrammeInterest: job.Mapping.Resolve(models.FieldProgrammeInterest, row.Raw),
		NormalizedPhone:   validation.NormalizePhone(phone),
		NormalizedEmail:   validation.NormalizeEmail(email),
		SourceJobID:       job.ID,
	}
}

// skipRow annotates the row and returns 1 for count accumulation
func (s *importService) skipRow(ctx context.Context, job *models.ImportJob, row *models.ImportRow, reason string) int {
	if err := s.repos.Job.MarkRowSkipped(ctx, row.ID, reason); err != nil {
		s.log.Error().Err(err).Str("row_id", row.ID).Msg("Failed to record skip reason")
	}
	row.SkipReason = reason
	s.log.Debug().
		Str("job_id", job.ID).
		Int("row_number", row.RowNumber).
		Str("reason", reason).
		Msg("Row skipped")
	return 1
}

func (s *importService) markFailed(ctx context.Context, job *models.ImportJob) {
	if !job.Status.CanTransitionTo(models.JobStatusFailed) {
		return
	}
	job.Status = models.JobStatusFailed
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job failed")
	}
}

func (s *importService) lockFor(jobID string) *sync.Mutex {
	actual, _ := s.commitLocks.LoadOrStore(jobID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func rememberContact(phones, emails map[string]bool, lead *models.Lead) {
	if lead.NormalizedPhone != "" {
		phones[lead.NormalizedPhone] = true
	}
	if lead.NormalizedEmail != "" {
		emails[lead.NormalizedEmail] = true
	}
}
