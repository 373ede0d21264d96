package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/quangtm-dev/dirsubmit-be/internal/progress"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

// QueueService is the write-side surface handlers call
type QueueService interface {
	CreateJob(ctx context.Context, params queue.CreateJobParams) (*domain.Job, error)
	ClaimNextJob(ctx context.Context, workerID string) (*domain.Job, error)
	ReportDirectoryResult(ctx context.Context, params queue.ReportParams) error
	CompleteJob(ctx context.Context, jobID, status, errorMessage string) error
}

// ProgressReader is the read-side surface handlers call
type ProgressReader interface {
	GetJobProgress(ctx context.Context, jobID string) (*progress.JobProgress, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]storage.JobOverviewRow, error)
	ListStuckJobs(ctx context.Context, threshold time.Duration) ([]progress.StuckJob, error)
}

// JobReader fetches job records and their result rows for the operator
// detail views
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListSubmissionResults(ctx context.Context, jobID string) ([]domain.SubmissionResult, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger             *slog.Logger
	Queue              QueueService
	Progress           ProgressReader
	Jobs               JobReader
	StalenessThreshold time.Duration
}

// JobHandler handles job queue HTTP requests
type JobHandler struct {
	logger             *slog.Logger
	queue              QueueService
	progress           ProgressReader
	jobs               JobReader
	stalenessThreshold time.Duration
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	if deps.StalenessThreshold <= 0 {
		deps.StalenessThreshold = 2 * time.Hour
	}
	return &JobHandler{
		logger:             deps.Logger,
		queue:              deps.Queue,
		progress:           deps.Progress,
		jobs:               deps.Jobs,
		stalenessThreshold: deps.StalenessThreshold,
	}
}
