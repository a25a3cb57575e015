package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lead-import-api/internal/mocks"
	"github.com/lead-import-api/internal/models"
)

func TestMockImportJobRepository_CreateWithRows(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()
	ctx := context.Background()

	job := &models.ImportJob{
		ID:        "job-1",
		Source:    models.SourceCSVUpload,
		Filename:  "leads.csv",
		Status:    models.JobStatusPreview,
		CreatedAt: time.Now(),
	}
	rows := []*models.ImportRow{
		{ID: "row-2", JobID: "job-1", RowNumber: 2, ValidationState: models.RowStatePending},
		{ID: "row-1", JobID: "job-1", RowNumber: 1, ValidationState: models.RowStatePending},
	}

	if err := repo.CreateWithRows(ctx, job, rows); err != nil {
		t.Fatalf("CreateWithRows failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored == nil || stored.Filename != "leads.csv" {
		t.Errorf("Job not stored correctly: %+v", stored)
	}

	// Rows come back in ascending row number regardless of insert order.
	storedRows, err := repo.GetRows(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(storedRows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(storedRows))
	}
	if storedRows[0].RowNumber != 1 || storedRows[1].RowNumber != 2 {
		t.Errorf("Rows out of order: %d, %d", storedRows[0].RowNumber, storedRows[1].RowNumber)
	}
}

func TestMockImportJobRepository_GetByIDMissing(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()

	job, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Errorf("Expected nil for missing job, got %+v", job)
	}
}

func TestMockImportJobRepository_Update(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()
	ctx := context.Background()

	job := &models.ImportJob{ID: "job-1", Status: models.JobStatusPreview}
	repo.CreateWithRows(ctx, job, nil)

	job.Status = models.JobStatusValidated
	job.Summary.ValidCount = 4
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stored, _ := repo.GetByID(ctx, "job-1")
	if stored.Status != models.JobStatusValidated || stored.Summary.ValidCount != 4 {
		t.Errorf("Update not applied: %+v", stored)
	}
}

func TestMockImportJobRepository_ListNewestFirst(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		repo.CreateWithRows(ctx, &models.ImportJob{
			ID:        fmt.Sprintf("job-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}, nil)
	}

	jobs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "job-2" || jobs[1].ID != "job-1" {
		t.Errorf("Expected newest first, got %s, %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestMockImportJobRepository_RowAnnotations(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()
	ctx := context.Background()

	job := &models.ImportJob{ID: "job-1"}
	rows := []*models.ImportRow{
		{ID: "row-1", JobID: "job-1", RowNumber: 1, ValidationState: models.RowStatePending},
		{ID: "row-2", JobID: "job-1", RowNumber: 2, ValidationState: models.RowStatePending},
	}
	repo.CreateWithRows(ctx, job, rows)

	rows[0].ValidationState = models.RowStateValid
	rows[1].ValidationState = models.RowStateInvalid
	rows[1].ValidationErrors = []string{models.ReasonMissingName}
	if err := repo.UpdateRowValidation(ctx, rows); err != nil {
		t.Fatalf("UpdateRowValidation failed: %v", err)
	}

	if err := repo.MarkRowCommitted(ctx, "row-1", "lead-1"); err != nil {
		t.Fatalf("MarkRowCommitted failed: %v", err)
	}
	if err := repo.MarkRowSkipped(ctx, "row-2", models.ReasonDuplicateContact); err != nil {
		t.Fatalf("MarkRowSkipped failed: %v", err)
	}

	stored, _ := repo.GetRows(ctx, "job-1")
	if stored[0].CommittedLeadID != "lead-1" {
		t.Errorf("Expected committed lead on row 1, got %q", stored[0].CommittedLeadID)
	}
	if stored[1].SkipReason != models.ReasonDuplicateContact {
		t.Errorf("Expected skip reason on row 2, got %q", stored[1].SkipReason)
	}
	if len(stored[1].ValidationErrors) != 1 {
		t.Errorf("Expected validation error preserved, got %v", stored[1].ValidationErrors)
	}
}

func TestMockImportJobRepository_StreamRowsFilters(t *testing.T) {
	repo := mocks.NewMockImportJobRepository()
	ctx := context.Background()

	repo.CreateWithRows(ctx, &models.ImportJob{ID: "job-1"}, []*models.ImportRow{
		{ID: "row-1", JobID: "job-1", RowNumber: 1, ValidationState: models.RowStateValid},
		{ID: "row-2", JobID: "job-1", RowNumber: 2, ValidationState: models.RowStateInvalid},
		{ID: "row-3", JobID: "job-1", RowNumber: 3, ValidationState: models.RowStateValid},
	})

	var seen []int
	err := repo.StreamRows(ctx, "job-1", models.RowStateValid, func(row *models.ImportRow) error {
		seen = append(seen, row.RowNumber)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRows failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Errorf("Expected valid rows 1 and 3, got %v", seen)
	}

	// Empty state streams everything.
	count := 0
	repo.StreamRows(ctx, "job-1", "", func(row *models.ImportRow) error {
		count++
		return nil
	})
	if count != 3 {
		t.Errorf("Expected all 3 rows, got %d", count)
	}
}

func TestMockLeadRepository_FindByContact(t *testing.T) {
	repo := mocks.NewMockLeadRepository()
	ctx := context.Background()

	lead := &models.Lead{
		ID:              "lead-1",
		Name:            "Asha",
		NormalizedPhone: "9999999999",
		NormalizedEmail: "asha@x.com",
	}
	if err := repo.Create(ctx, lead); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Phone match.
	found, err := repo.FindByContact(ctx, "9999999999", "")
	if err != nil {
		t.Fatalf("FindByContact failed: %v", err)
	}
	if found == nil || found.ID != "lead-1" {
		t.Errorf("Expected lead-1 by phone, got %+v", found)
	}

	// Email match.
	found, _ = repo.FindByContact(ctx, "", "asha@x.com")
	if found == nil || found.ID != "lead-1" {
		t.Errorf("Expected lead-1 by email, got %+v", found)
	}

	// No match.
	found, _ = repo.FindByContact(ctx, "1234567", "other@x.com")
	if found != nil {
		t.Errorf("Expected no match, got %+v", found)
	}
}

func TestMockLeadRepository_EmptyIdentitiesNeverMatch(t *testing.T) {
	repo := mocks.NewMockLeadRepository()
	ctx := context.Background()

	// A lead that carries no contact identity at all.
	repo.Create(ctx, &models.Lead{ID: "lead-1", Name: "Walk-in"})

	// Empty identities must not match the contactless lead.
	found, err := repo.FindByContact(ctx, "", "")
	if err != nil {
		t.Fatalf("FindByContact failed: %v", err)
	}
	if found != nil {
		t.Errorf("Empty identities should never match, got %+v", found)
	}
}

func TestMockLeadRepository_Count(t *testing.T) {
	repo := mocks.NewMockLeadRepository()
	ctx := context.Background()

	count, _ := repo.Count(ctx)
	if count != 0 {
		t.Errorf("Expected 0, got %d", count)
	}

	for i := 0; i < 4; i++ {
		repo.Create(ctx, &models.Lead{ID: fmt.Sprintf("lead-%d", i)})
	}

	count, _ = repo.Count(ctx)
	if count != 4 {
		t.Errorf("Expected 4, got %d", count)
	}
}
