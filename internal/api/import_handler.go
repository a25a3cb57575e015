package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/mapper"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/service"
	"github.com/rs/zerolog"
)

// ImportHandler handles the pipeline mutation endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// sourceForExtension maps an upload extension to its source tag. Unknown
// extensions map to "" and are rejected before decoding.
func sourceForExtension(filename string) models.Source {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return models.SourceCSVUpload
	case ".xlsx":
		return models.SourceXLSXUpload
	default:
		return ""
	}
}

// CreatePreview handles POST /v1/imports
// Accepts a multipart upload: "file" plus optional "source" and "mapping"
// (JSON) fields. Decodes the spreadsheet and persists a PREVIEW job.
func (h *ImportHandler) CreatePreview(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
		})
		return
	}

	source := models.Source(c.PostForm("source"))
	if source == "" {
		source = sourceForExtension(header.Filename)
	}
	if !source.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be csv_upload or xlsx_upload"})
		return
	}

	var mapping *models.Mapping
	if raw := c.PostForm("mapping"); raw != "" {
		mapping = &models.Mapping{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mapping must be valid JSON"})
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	req := &models.PreviewRequest{
		Source:   source,
		Filename: header.Filename,
		Mapping:  mapping,
	}

	resp, err := h.services.Import.CreatePreview(ctx, req, data)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to create preview job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create import job"})
		return
	}

	h.log.Info().
		Str("job_id", resp.Job.ID).
		Str("source", string(source)).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Int("rows", resp.Job.Summary.PreviewCount).
		Msg("Preview job created")

	c.JSON(http.StatusCreated, resp)
}

// ProposeMapping handles POST /v1/mappings/propose
// Pure heuristic over the supplied header list; nothing is persisted.
func (h *ImportHandler) ProposeMapping(c *gin.Context) {
	var req models.ProposeMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "headers array is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mapping": mapper.ProposeMapping(req.Headers),
	})
}

// Validate handles POST /v1/imports/:job_id/validate
func (h *ImportHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	var req models.ValidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	result, err := h.services.Import.Validate(ctx, jobID, req.Mapping)
	if err != nil {
		h.respondPipelineError(c, jobID, "validate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":           result.Job,
		"valid_count":   result.ValidCount,
		"invalid_count": result.InvalidCount,
	})
}

// Commit handles POST /v1/imports/:job_id/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	result, err := h.services.Import.Commit(ctx, jobID)
	if err != nil {
		h.respondPipelineError(c, jobID, "commit", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":           result.Job,
		"created_count": result.CreatedCount,
		"skipped_count": result.SkippedCount,
	})
}

// respondPipelineError maps pipeline errors onto HTTP statuses. Row-level
// problems never reach here; only structural errors do.
func (h *ImportHandler) respondPipelineError(c *gin.Context, jobID, op string, err error) {
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, models.ErrMappingIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotValidated):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrJobFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("job_id", jobID).Str("op", op).Msg("Pipeline operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to %s job", op)})
	}
}
