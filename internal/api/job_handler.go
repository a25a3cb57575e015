package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lead-import-api/internal/config"
	"github.com/lead-import-api/internal/models"
	"github.com/lead-import-api/internal/service"
	"github.com/rs/zerolog"
)

// JobHandler handles the read-only job history endpoints
type JobHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *JobHandler {
	return &JobHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "job").Logger(),
	}
}

// ListJobs handles GET /v1/imports
func (h *JobHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	jobs, err := h.services.Job.ListJobs(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []*models.ImportJob{}
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob handles GET /v1/imports/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	job, err := h.services.Job.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetJobRows handles GET /v1/imports/:job_id/rows
// Streams the per-row report, optionally filtered by validation state.
// format=csv produces a downloadable report for operators.
func (h *JobHandler) GetJobRows(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	var state models.RowState
	if raw := c.Query("state"); raw != "" {
		state = models.RowState(strings.ToUpper(raw))
		switch state {
		case models.RowStatePending, models.RowStateValid, models.RowStateInvalid:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "state must be one of: pending, valid, invalid"})
			return
		}
	}

	if c.Query("format") == "csv" {
		h.streamRowsCSV(c, jobID, state)
		return
	}

	var rows []*models.ImportRow
	err := h.services.Job.StreamRows(ctx, jobID, state, func(row *models.ImportRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rows"})
		return
	}
	if rows == nil {
		rows = []*models.ImportRow{}
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"count":  len(rows),
		"rows":   rows,
	})
}

func (h *JobHandler) streamRowsCSV(c *gin.Context, jobID string, state models.RowState) {
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=rows_%s.csv", jobID))

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"row_number", "validation_state", "validation_errors", "skip_reason", "committed_lead_id"})

	err := h.services.Job.StreamRows(ctx, jobID, state, func(row *models.ImportRow) error {
		return writer.Write([]string{
			strconv.Itoa(row.RowNumber),
			string(row.ValidationState),
			strings.Join(row.ValidationErrors, "; "),
			row.SkipReason,
			row.CommittedLeadID,
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to stream job rows")
		return
	}
	writer.Flush()
}
