package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lead-import-api/internal/database"
	"github.com/lead-import-api/internal/models"
	"github.com/lib/pq"
)

// importJobRepo is the concrete implementation of ImportJobRepository
type importJobRepo struct {
	db *database.DB
}

// NewImportJobRepo creates a new import job repository
func NewImportJobRepo(db *database.DB) ImportJobRepository {
	return &importJobRepo{db: db}
}

const jobColumns = `id, source, filename, headers, mapping, status,
	preview_count, valid_count, invalid_count, created_count, skipped_count,
	created_at, updated_at`

// CreateWithRows inserts the job and its full row snapshot in one
// transaction. The snapshot uses the COPY protocol; preview files can
// run to thousands of rows.
func (r *importJobRepo) CreateWithRows(ctx context.Context, job *models.ImportJob, rows []*models.ImportRow) error {
	headersJSON, err := json.Marshal(job.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	mappingJSON, err := json.Marshal(job.Mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO import_jobs (id, source, filename, headers, mapping, status,
			preview_count, valid_count, invalid_count, created_count, skipped_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, query,
		job.ID, job.Source, job.Filename, headersJSON, mappingJSON, job.Status,
		job.Summary.PreviewCount, job.Summary.ValidCount, job.Summary.InvalidCount,
		job.Summary.CreatedCount, job.Summary.SkippedCount,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_rows",
		"id", "job_id", "row_number", "raw", "validation_state",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		rawJSON, err := json.Marshal(row.Raw)
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", row.RowNumber, err)
		}
		if _, err := stmt.ExecContext(ctx, row.ID, row.JobID, row.RowNumber, rawJSON, row.ValidationState); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a job by ID
func (r *importJobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE id = $1`
	return r.scanJob(r.db.QueryRowContext(ctx, query, id))
}

// Update persists the job's mapping, status, summary counts and
// updated_at. Source, filename, headers and created_at are immutable.
func (r *importJobRepo) Update(ctx context.Context, job *models.ImportJob) error {
	mappingJSON, err := json.Marshal(job.Mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	query := `
		UPDATE import_jobs SET
			mapping = $1, status = $2, preview_count = $3, valid_count = $4,
			invalid_count = $5, created_count = $6, skipped_count = $7, updated_at = $8
		WHERE id = $9
	`
	_, err = r.db.ExecContext(ctx, query,
		mappingJSON, job.Status, job.Summary.PreviewCount, job.Summary.ValidCount,
		job.Summary.InvalidCount, job.Summary.CreatedCount, job.Summary.SkippedCount,
		time.Now(), job.ID,
	)
	return err
}

// List retrieves recent jobs, newest first
func (r *importJobRepo) List(ctx context.Context, limit int) ([]*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Count returns the total number of jobs
func (r *importJobRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM import_jobs").Scan(&count)
	return count, err
}

const rowColumns = `id, job_id, row_number, raw, validation_state,
	validation_errors, committed_lead_id, skip_reason`

// GetRows retrieves the full row set for a job in ascending row_number
// order. Commit relies on this ordering for its deterministic tie-break.
func (r *importJobRepo) GetRows(ctx context.Context, jobID string) ([]*models.ImportRow, error) {
	query := `SELECT ` + rowColumns + ` FROM import_rows WHERE job_id = $1 ORDER BY row_number`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.ImportRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpdateRowValidation overwrites the validation annotation on each given
// row. Raw content is never touched; re-running validation safely flips
// states in place.
func (r *importJobRepo) UpdateRowValidation(ctx context.Context, rows []*models.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE import_rows SET validation_state = $1, validation_errors = $2 WHERE id = $3
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ValidationState, pq.Array(row.ValidationErrors), row.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkRowCommitted records the created lead on a row
func (r *importJobRepo) MarkRowCommitted(ctx context.Context, rowID, leadID string) error {
	query := `UPDATE import_rows SET committed_lead_id = $1, skip_reason = NULL WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, leadID, rowID)
	return err
}

// MarkRowSkipped records why a valid row did not produce a lead
func (r *importJobRepo) MarkRowSkipped(ctx context.Context, rowID, reason string) error {
	query := `UPDATE import_rows SET skip_reason = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reason, rowID)
	return err
}

// StreamRows streams a job's rows in row_number order, optionally
// filtered by validation state. Used for the per-row operator report.
func (r *importJobRepo) StreamRows(ctx context.Context, jobID string, state models.RowState, callback func(*models.ImportRow) error) error {
	query := `SELECT ` + rowColumns + ` FROM import_rows WHERE job_id = $1`
	args := []interface{}{jobID}
	if state != "" {
		query += ` AND validation_state = $2`
		args = append(args, state)
	}
	query += ` ORDER BY row_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return err
		}
		if err := callback(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *importJobRepo) scanJob(s scanner) (*models.ImportJob, error) {
	var job models.ImportJob
	var headersJSON, mappingJSON []byte

	err := s.Scan(
		&job.ID, &job.Source, &job.Filename, &headersJSON, &mappingJSON, &job.Status,
		&job.Summary.PreviewCount, &job.Summary.ValidCount, &job.Summary.InvalidCount,
		&job.Summary.CreatedCount, &job.Summary.SkippedCount,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(headersJSON, &job.Headers); err != nil {
		return nil, fmt.Errorf("unmarshal headers for job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal(mappingJSON, &job.Mapping); err != nil {
		return nil, fmt.Errorf("unmarshal mapping for job %s: %w", job.ID, err)
	}

	return &job, nil
}

func scanRow(s scanner) (*models.ImportRow, error) {
	var row models.ImportRow
	var rawJSON []byte
	var committedLeadID, skipReason sql.NullString

	err := s.Scan(
		&row.ID, &row.JobID, &row.RowNumber, &rawJSON, &row.ValidationState,
		pq.Array(&row.ValidationErrors), &committedLeadID, &skipReason,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawJSON, &row.Raw); err != nil {
		return nil, fmt.Errorf("unmarshal raw for row %s: %w", row.ID, err)
	}
	row.CommittedLeadID = committedLeadID.String
	row.SkipReason = skipReason.String

	return &row, nil
}
