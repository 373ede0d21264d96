package handler

import (
	"time"

	"github.com/quangtm-dev/dirsubmit-be/internal/api/dto"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
)

func jobDetailDTO(job *domain.Job) dto.JobDetailDTO {
	return dto.JobDetailDTO{
		JobID:           job.ID,
		CustomerRef:     job.CustomerRef,
		PackageSize:     job.PackageSize,
		PriorityLevel:   job.PriorityLevel,
		Status:          job.Status,
		BusinessPayload: job.BusinessPayload,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		StartedAt:       formatTimePtr(job.StartedAt),
		CompletedAt:     formatTimePtr(job.CompletedAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
