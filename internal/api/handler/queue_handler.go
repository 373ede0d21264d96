package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quangtm-dev/dirsubmit-be/internal/api/dto"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue"
)

// ClaimJob handles POST /api/v1/queue/claim
// Atomically claims the next pending job for the calling worker. An empty
// queue returns {"job": null} with 200; the worker is expected to back off
// and poll again.
func (h *JobHandler) ClaimJob(c *gin.Context) {
	workerID := c.GetString("worker_id")

	job, err := h.queue.ClaimNextJob(c.Request.Context(), workerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if job == nil {
		c.JSON(http.StatusOK, dto.ClaimJobResponse{Job: nil})
		return
	}

	claimed := &dto.ClaimedJobDTO{
		JobID:           job.ID,
		CustomerRef:     job.CustomerRef,
		PackageSize:     job.PackageSize,
		PriorityLevel:   job.PriorityLevel,
		BusinessPayload: job.BusinessPayload,
	}
	if job.StartedAt != nil {
		claimed.StartedAt = job.StartedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, dto.ClaimJobResponse{Job: claimed})
}

// ReportResult handles POST /api/v1/queue/jobs/:job_id/results
// Records one directory outcome against an in_progress job. At-least-once
// from the worker's side: duplicate reports for the same directory overwrite
// the row rather than erroring.
func (h *JobHandler) ReportResult(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.ReportResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid report request body",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	err := h.queue.ReportDirectoryResult(c.Request.Context(), queue.ReportParams{
		JobID:         jobID,
		DirectoryName: req.DirectoryName,
		Status:        req.Status,
		ResponseLog:   req.ResponseLog,
		WorkerID:      c.GetString("worker_id"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// CompleteJob handles POST /api/v1/queue/jobs/:job_id/complete
// Finalizes a claimed job. Safe to retry: repeating the same terminal status
// is a no-op, a conflicting one is a 409.
func (h *JobHandler) CompleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.CompleteJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid completion request body",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if err := h.queue.CompleteJob(c.Request.Context(), jobID, req.Status, req.ErrorMessage); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}
