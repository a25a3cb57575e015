package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lead-import-api/internal/api"
	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/mocks"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/service"
	"github.com/rs/zerolog"
)

func setupRouter(importSvc *mocks.MockImportService, jobSvc *mocks.MockJobService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	services := &service.Services{
		Import: importSvc,
		Job:    jobSvc,
	}
	cfg := &config.Config{
		Import: config.ImportConfig{
			MaxUploadSize: 20 * 1024 * 1024,
			PreviewRows:   25,
			ListPageSize:  20,
			ListPageMax:   50,
		},
	}
	return api.NewRouter(services, cfg, zerolog.Nop())
}

// multipartUpload builds a multipart body carrying a file plus optional
// extra form fields, returning the body and its content type.
func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
}

func TestMetrics(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1"}
	jobSvc.LeadCount = 7
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Database struct {
			ImportJobs int `json:"import_jobs"`
			Leads      int `json:"leads"`
		} `json:"database"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Database.ImportJobs != 1 || resp.Database.Leads != 7 {
		t.Errorf("Unexpected metrics: %+v", resp.Database)
	}
}

func TestCreatePreviewUpload(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	var gotReq *models.PreviewRequest
	var gotData []byte
	importSvc.PreviewFunc = func(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error) {
		gotReq = req
		gotData = data
		return &models.PreviewResponse{
			Job: &models.ImportJob{
				ID:     "job-1",
				Status: models.JobStatusPreview,
				Summary: models.Summary{
					PreviewCount: 2,
				},
			},
			Mapping: models.Mapping{PrimaryName: "name"},
		}, nil
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	body, contentType := multipartUpload(t, "leads.csv", "name\nAsha\nBala\n", nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotReq == nil {
		t.Fatal("Service was not called")
	}
	// Source inferred from the .csv extension.
	if gotReq.Source != models.SourceCSVUpload {
		t.Errorf("Expected csv_upload, got %s", gotReq.Source)
	}
	if gotReq.Filename != "leads.csv" {
		t.Errorf("Expected filename passthrough, got %q", gotReq.Filename)
	}
	if string(gotData) != "name\nAsha\nBala\n" {
		t.Errorf("Upload bytes mangled: %q", gotData)
	}
}

func TestCreatePreviewExplicitSourceAndMapping(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	var gotReq *models.PreviewRequest
	importSvc.PreviewFunc = func(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error) {
		gotReq = req
		return &models.PreviewResponse{Job: &models.ImportJob{ID: "job-1"}}, nil
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	body, contentType := multipartUpload(t, "export.dat", "name\nAsha\n", map[string]string{
		"source":  "csv_upload",
		"mapping": `{"primary_name":"name"}`,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotReq.Source != models.SourceCSVUpload {
		t.Errorf("Explicit source should win over extension, got %s", gotReq.Source)
	}
	if gotReq.Mapping == nil || gotReq.Mapping.PrimaryName != "name" {
		t.Errorf("Mapping field not parsed: %+v", gotReq.Mapping)
	}
}

func TestCreatePreviewMissingFile(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestCreatePreviewUnknownExtension(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	router := setupRouter(importSvc, mocks.NewMockJobService())

	body, contentType := multipartUpload(t, "leads.pdf", "junk", nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
	if importSvc.PreviewCalls != 0 {
		t.Errorf("Service should not be reached, got %d calls", importSvc.PreviewCalls)
	}
}

func TestCreatePreviewUnsupportedFormat(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	importSvc.PreviewFunc = func(ctx context.Context, req *models.PreviewRequest, data []byte) (*models.PreviewResponse, error) {
		return nil, models.ErrUnsupportedFormat
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	body, contentType := multipartUpload(t, "broken.xlsx", "not a workbook", nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestProposeMapping(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	payload := `{"headers":["Full Name","Mobile","Email Address"]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/mappings/propose", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Mapping models.Mapping `json:"mapping"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Mapping.PrimaryName != "Full Name" {
		t.Errorf("Expected Full Name matched, got %+v", resp.Mapping)
	}
	if resp.Mapping.Email != "Email Address" {
		t.Errorf("Expected Email Address matched, got %+v", resp.Mapping)
	}
}

func TestProposeMappingBadBody(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/mappings/propose", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	importSvc.ValidateFunc = func(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error) {
		return &models.ValidateResult{
			Job:          &models.ImportJob{ID: jobID, Status: models.JobStatusValidated},
			ValidCount:   1,
			InvalidCount: 1,
		}, nil
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	// No body: validate under the stored mapping.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports/job-1/validate", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ValidCount   int `json:"valid_count"`
		InvalidCount int `json:"invalid_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.ValidCount != 1 || resp.InvalidCount != 1 {
		t.Errorf("Unexpected counts: %+v", resp)
	}
}

func TestValidateEndpointWithMappingOverride(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	var gotMapping *models.Mapping
	importSvc.ValidateFunc = func(ctx context.Context, jobID string, mapping *models.Mapping) (*models.ValidateResult, error) {
		gotMapping = mapping
		return &models.ValidateResult{Job: &models.ImportJob{ID: jobID}}, nil
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	payload := `{"mapping":{"primary_name":"customer"}}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports/job-1/validate", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotMapping == nil || gotMapping.PrimaryName != "customer" {
		t.Errorf("Mapping override not forwarded: %+v", gotMapping)
	}
}

func TestCommitEndpoint(t *testing.T) {
	importSvc := mocks.NewMockImportService()
	importSvc.CommitFunc = func(ctx context.Context, jobID string) (*models.CommitResult, error) {
		return &models.CommitResult{
			Job:          &models.ImportJob{ID: jobID, Status: models.JobStatusCommitted},
			CreatedCount: 3,
			SkippedCount: 1,
		}, nil
	}
	router := setupRouter(importSvc, mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/imports/job-1/commit", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		CreatedCount int `json:"created_count"`
		SkippedCount int `json:"skipped_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.CreatedCount != 3 || resp.SkippedCount != 1 {
		t.Errorf("Unexpected counts: %+v", resp)
	}
}

func TestPipelineErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"job not found", models.ErrJobNotFound, http.StatusNotFound},
		{"mapping incomplete", models.ErrMappingIncomplete, http.StatusUnprocessableEntity},
		{"not validated", models.ErrNotValidated, http.StatusConflict},
		{"job failed", models.ErrJobFailed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importSvc := mocks.NewMockImportService()
			importSvc.CommitFunc = func(ctx context.Context, jobID string) (*models.CommitResult, error) {
				return nil, tt.err
			}
			router := setupRouter(importSvc, mocks.NewMockJobService())

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/v1/imports/job-1/commit", nil)
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestListJobs(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1", Status: models.JobStatusCommitted}
	jobSvc.Jobs["job-2"] = &models.ImportJob{ID: "job-2", Status: models.JobStatusPreview}
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Jobs  []*models.ImportJob `json:"jobs"`
		Count int                 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 2 || len(resp.Jobs) != 2 {
		t.Errorf("Expected 2 jobs, got count=%d len=%d", resp.Count, len(resp.Jobs))
	}
}

func TestListJobsBadLimit(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	for _, raw := range []string{"abc", "-5", "0"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/v1/imports?limit="+raw, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", raw, w.Code)
		}
	}
}

func TestGetJob(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1", Filename: "leads.csv"}
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/job-1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var job models.ImportJob
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if job.ID != "job-1" || job.Filename != "leads.csv" {
		t.Errorf("Unexpected job: %+v", job)
	}
}

func TestGetJobNotFound(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/missing", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestGetJobRows(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1"}
	jobSvc.JobRows["job-1"] = []*models.ImportRow{
		{RowNumber: 1, ValidationState: models.RowStateValid},
		{RowNumber: 2, ValidationState: models.RowStateInvalid, ValidationErrors: []string{models.ReasonMissingName}},
	}
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/job-1/rows", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Count int                 `json:"count"`
		Rows  []*models.ImportRow `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("Expected 2 rows, got %d", resp.Count)
	}
}

func TestGetJobRowsStateFilter(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1"}
	jobSvc.JobRows["job-1"] = []*models.ImportRow{
		{RowNumber: 1, ValidationState: models.RowStateValid},
		{RowNumber: 2, ValidationState: models.RowStateInvalid},
	}
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/job-1/rows?state=invalid", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Expected 1 invalid row, got %d", resp.Count)
	}
}

func TestGetJobRowsBadState(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/job-1/rows?state=bogus", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestGetJobRowsCSVFormat(t *testing.T) {
	jobSvc := mocks.NewMockJobService()
	jobSvc.Jobs["job-1"] = &models.ImportJob{ID: "job-1"}
	jobSvc.JobRows["job-1"] = []*models.ImportRow{
		{RowNumber: 1, ValidationState: models.RowStateValid, CommittedLeadID: "lead-1"},
		{RowNumber: 2, ValidationState: models.RowStateInvalid, ValidationErrors: []string{models.ReasonInvalidEmail}},
	}
	router := setupRouter(mocks.NewMockImportService(), jobSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/imports/job-1/rows?format=csv", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines: %q", len(lines), w.Body.String())
	}
	if !strings.HasPrefix(lines[0], "row_number,") {
		t.Errorf("Unexpected CSV header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "lead-1") {
		t.Errorf("Row 1 should carry its lead ID: %q", lines[1])
	}
	if !strings.Contains(lines[2], models.ReasonInvalidEmail) {
		t.Errorf("Row 2 should carry its failure reason: %q", lines[2])
	}
}

func TestCORSPreflightRequest(t *testing.T) {
	router := setupRouter(mocks.NewMockImportService(), mocks.NewMockJobService())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/v1/imports", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
}
