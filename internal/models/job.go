package models

import (
	"time"
)

// Source identifies the kind of uploaded spreadsheet
type Source string

const (
	SourceCSVUpload  Source = "csv_upload"
	SourceXLSXUpload Source = "xlsx_upload"
)

// IsValid reports whether the source is a known upload kind
func (s Source) IsValid() bool {
	switch s {
	case SourceCSVUpload, SourceXLSXUpload:
		return true
	default:
		return false
	}
}

// JobStatus represents the stage of an import job
type JobStatus string

const (
	JobStatusPreview   JobStatus = "PREVIEW"
	JobStatusValidated JobStatus = "VALIDATED"
	JobStatusCommitted JobStatus = "COMMITTED"
	JobStatusFailed    JobStatus = "FAILED"
)

// CanTransitionTo enforces the one-directional job lifecycle:
// PREVIEW → VALIDATED → COMMITTED, with FAILED reachable from any
// non-terminal state. Re-validating an already VALIDATED job is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPreview:
		return next == JobStatusValidated || next == JobStatusFailed
	case JobStatusValidated:
		return next == JobStatusValidated || next == JobStatusCommitted || next == JobStatusFailed
	case JobStatusCommitted:
		return false
	case JobStatusFailed:
		return false
	default:
		return false
	}
}

// RowState represents the validation outcome of a single row
type RowState string

const (
	RowStatePending RowState = "PENDING"
	RowStateValid   RowState = "VALID"
	RowStateInvalid RowState = "INVALID"
)

// Summary holds the progressive per-stage counts for a job
type Summary struct {
	PreviewCount int `json:"preview_count" db:"preview_count"`
	ValidCount   int `json:"valid_count" db:"valid_count"`
	InvalidCount int `json:"invalid_count" db:"invalid_count"`
	CreatedCount int `json:"created_count" db:"created_count"`
	SkippedCount int `json:"skipped_count" db:"skipped_count"`
}

// ImportJob represents one uploaded spreadsheet moving through the pipeline.
// A job exclusively owns its rows; deleting a job deletes its rows.
type ImportJob struct {
	ID        string    `json:"job_id" db:"id"`
	Source    Source    `json:"source" db:"source"`
	Filename  string    `json:"filename" db:"filename"`
	Headers   []string  `json:"headers" db:"headers"`
	Mapping   Mapping   `json:"mapping" db:"mapping"`
	Status    JobStatus `json:"status" db:"status"`
	Summary   Summary   `json:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ImportRow is a snapshot of one spreadsheet row. Raw is immutable after
// creation; validation and commit only annotate the row.
type ImportRow struct {
	ID               string            `json:"row_id" db:"id"`
	JobID            string            `json:"-" db:"job_id"`
	RowNumber        int               `json:"row_number" db:"row_number"`
	Raw              map[string]string `json:"raw" db:"raw"`
	ValidationState  RowState          `json:"validation_state" db:"validation_state"`
	ValidationErrors []string          `json:"validation_errors,omitempty" db:"validation_errors"`
	CommittedLeadID  string            `json:"committed_lead_id,omitempty" db:"committed_lead_id"`
	SkipReason       string            `json:"skip_reason,omitempty" db:"skip_reason"`
}

// PreviewRequest carries the operator input for job creation
type PreviewRequest struct {
	Source   Source   `json:"source"`
	Filename string   `json:"filename"`
	Mapping  *Mapping `json:"mapping,omitempty"`
}

// PreviewResponse is the output of job creation: the persisted job, its
// effective mapping and a bounded slice of rows for display. The
// truncation is presentation-only; validation and commit always operate
// on the full row set.
type PreviewResponse struct {
	Job         *ImportJob   `json:"job"`
	Mapping     Mapping      `json:"mapping"`
	PreviewRows []*ImportRow `json:"preview_rows"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// ValidateRequest optionally overrides the stored mapping before validation
type ValidateRequest struct {
	Mapping *Mapping `json:"mapping,omitempty"`
}

// ValidateResult reports the outcome of a validation pass
type ValidateResult struct {
	Job          *ImportJob `json:"job"`
	ValidCount   int        `json:"valid_count"`
	InvalidCount int        `json:"invalid_count"`
}

// CommitResult reports the outcome of a commit call
type CommitResult struct {
	Job          *ImportJob `json:"job"`
	CreatedCount int        `json:"created_count"`
	SkippedCount int        `json:"skipped_count"`
}

// ProposeMappingRequest carries the header list for a mapping proposal
type ProposeMappingRequest struct {
	Headers []string `json:"headers"`
}
