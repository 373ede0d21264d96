package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

// Store is the read-only storage surface the aggregator consumes
type Store interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	CountResults(ctx context.Context, jobID string) (*storage.ResultCounts, error)
	ListStuckJobs(ctx context.Context, cutoff time.Time) ([]domain.Job, error)
	ListJobOverview(ctx context.Context, filter storage.JobFilter) ([]storage.JobOverviewRow, error)
}

// JobProgress is the derived per-job completion view
type JobProgress struct {
	JobID                string  `json:"job_id"`
	Status               string  `json:"status"`
	PackageSize          int     `json:"package_size"`
	SubmittedCount       int     `json:"submitted_count"`
	FailedCount          int     `json:"failed_count"`
	PendingCount         int     `json:"pending_count"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Compute derives progress counts from the raw tallies. pending is the
// remainder of the package; directories the worker never reported on have no
// row at all.
func Compute(jobID, status string, packageSize, submitted, failed int) *JobProgress {
	pending := packageSize - submitted - failed
	if pending < 0 {
		pending = 0
	}

	var pct float64
	if packageSize > 0 {
		pct = float64(submitted+failed) / float64(packageSize) * 100
		if pct > 100 {
			pct = 100
		}
	}

	return &JobProgress{
		JobID:                jobID,
		Status:               status,
		PackageSize:          packageSize,
		SubmittedCount:       submitted,
		FailedCount:          failed,
		PendingCount:         pending,
		CompletionPercentage: pct,
	}
}

// Aggregator is the read side of the queue: progress counts, the monitoring
// listing, and stuck-job detection. It never mutates job state.
//
// Counts are computed from submission_results on demand so they cannot drift
// from ground truth. The optional Redis cache only short-circuits repeat
// reads; the queue service invalidates it on every report and completion.
type Aggregator struct {
	store    Store
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. cache may be nil, in which case every
// read recomputes.
func NewAggregator(store Store, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *Aggregator {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Aggregator{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func progressCacheKey(jobID string) string {
	return "progress:" + jobID
}

// GetJobProgress returns the derived completion view for one job
func (a *Aggregator) GetJobProgress(ctx context.Context, jobID string) (*JobProgress, error) {
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, progressCacheKey(jobID)).Bytes()
		if err == nil {
			var progress JobProgress
			if err := json.Unmarshal(cached, &progress); err == nil {
				return &progress, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			a.logger.Warn("Progress cache read failed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}

	job, err := a.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	counts, err := a.store.CountResults(ctx, jobID)
	if err != nil {
		return nil, err
	}

	progress := Compute(job.ID, job.Status, job.PackageSize, counts.Submitted, counts.Failed)

	if a.cache != nil {
		if body, err := json.Marshal(progress); err == nil {
			if err := a.cache.Set(ctx, progressCacheKey(jobID), body, a.cacheTTL).Err(); err != nil {
				a.logger.Warn("Progress cache write failed",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
			}
		}
	}

	return progress, nil
}

// Invalidate drops the cached progress for a job. Called by the queue
// service after every mutation so cached counts never survive a report.
func (a *Aggregator) Invalidate(ctx context.Context, jobID string) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Del(ctx, progressCacheKey(jobID)).Err()
}

// ListJobs returns the monitoring overview rows
func (a *Aggregator) ListJobs(ctx context.Context, filter storage.JobFilter) ([]storage.JobOverviewRow, error) {
	return a.store.ListJobOverview(ctx, filter)
}

// StuckJob flags an in_progress job with no recent progress for human review
type StuckJob struct {
	JobID       string     `json:"job_id"`
	CustomerRef string     `json:"customer_ref"`
	PackageSize int        `json:"package_size"`
	StartedAt   *time.Time `json:"started_at"`
	StaleFor    string     `json:"stale_for"`
}

// ListStuckJobs returns jobs in_progress longer than threshold with no
// result reported inside that window. A crashed worker and a slow-but-alive
// worker are indistinguishable without a heartbeat, so nothing is requeued;
// the list exists for human intervention.
func (a *Aggregator) ListStuckJobs(ctx context.Context, threshold time.Duration) ([]StuckJob, error) {
	now := time.Now().UTC()
	jobs, err := a.store.ListStuckJobs(ctx, now.Add(-threshold))
	if err != nil {
		return nil, err
	}

	stuck := make([]StuckJob, 0, len(jobs))
	for _, job := range jobs {
		s := StuckJob{
			JobID:       job.ID,
			CustomerRef: job.CustomerRef,
			PackageSize: job.PackageSize,
			StartedAt:   job.StartedAt,
		}
		if job.StartedAt != nil {
			s.StaleFor = now.Sub(*job.StartedAt).Round(time.Second).String()
		}
		stuck = append(stuck, s)
	}

	return stuck, nil
}
