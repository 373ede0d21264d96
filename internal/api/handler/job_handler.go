package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quangtm-dev/dirsubmit-be/internal/api/dto"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

// CreateJob handles POST /api/v1/jobs
// Registers a new pending campaign on behalf of the customer-intake side.
// The business payload is stored opaquely; its shape belongs to intake.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := h.queue.CreateJob(c.Request.Context(), queue.CreateJobParams{
		CustomerRef:     req.CustomerRef,
		PackageSize:     req.PackageSize,
		PriorityLevel:   req.PriorityLevel,
		BusinessPayload: req.BusinessPayload,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, jobDetailDTO(job))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the full job record for operators
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobDetailDTO(job))
}

// GetJobProgress handles GET /api/v1/jobs/:job_id/progress
// Returns the derived completion counts for one job
func (h *JobHandler) GetJobProgress(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	result, err := h.progress.GetJobProgress(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetJobResults handles GET /api/v1/jobs/:job_id/results
// Returns every reported directory outcome for a job, including the appended
// response_log history. Directories the worker never reported on have no row.
func (h *JobHandler) GetJobResults(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if _, err := h.jobs.GetJob(c.Request.Context(), jobID); err != nil {
		h.respondError(c, err)
		return
	}

	results, err := h.jobs.ListSubmissionResults(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rows := make([]dto.SubmissionResultDTO, len(results))
	for i, r := range results {
		rows[i] = dto.SubmissionResultDTO{
			DirectoryName: r.DirectoryName,
			Status:        r.Status,
			ResponseLog:   r.ResponseLog,
			RetryCount:    r.RetryCount,
			SubmittedAt:   r.SubmittedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, dto.ListResultsResponse{
		JobID:   jobID,
		Results: rows,
	})
}

// ListJobs handles GET /api/v1/jobs
// The monitoring listing: per-job status and counts ordered the same way the
// dequeue orders, with keyset pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		Status:      req.Status,
		CustomerRef: req.CustomerRef,
		PageSize:    req.PageSize,
		Cursor:      cursor,
	}

	rows, err := h.progress.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	jobs := make([]dto.JobOverviewDTO, len(rows))
	for i, row := range rows {
		pending := row.PackageSize - row.SubmittedCount - row.FailedCount
		if pending < 0 {
			pending = 0
		}

		jobs[i] = dto.JobOverviewDTO{
			JobID:          row.JobID,
			CustomerRef:    row.CustomerRef,
			PackageSize:    row.PackageSize,
			PriorityLevel:  row.PriorityLevel,
			Status:         row.Status,
			SubmittedCount: row.SubmittedCount,
			FailedCount:    row.FailedCount,
			PendingCount:   pending,
			CreatedAt:      row.CreatedAt.Format(time.RFC3339),
			StartedAt:      formatTimePtr(row.StartedAt),
		}
	}

	var nextCursor string
	if hasMore {
		last := rows[len(rows)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			PriorityLevel: last.PriorityLevel,
			CreatedAt:     last.CreatedAt,
			JobID:         last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobs,
		NextCursor: nextCursor,
	})
}

// ListStuckJobs handles GET /api/v1/monitor/stuck
// Flags in_progress jobs with no recent reports for human review
func (h *JobHandler) ListStuckJobs(c *gin.Context) {
	stuck, err := h.progress.ListStuckJobs(c.Request.Context(), h.stalenessThreshold)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stuck_jobs": stuck,
		"threshold":  h.stalenessThreshold.String(),
	})
}
