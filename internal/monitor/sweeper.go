package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/quangtm-dev/dirsubmit-be/internal/progress"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
)

// StuckJobLister is the read surface the sweeper polls
type StuckJobLister interface {
	ListStuckJobs(ctx context.Context, threshold time.Duration) ([]progress.StuckJob, error)
}

// EventPublisher emits job.stuck alerts for external collaborators
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *domain.JobEvent) error
}

// Config holds sweeper configuration
type Config struct {
	Logger             *slog.Logger
	Lister             StuckJobLister
	Events             EventPublisher
	SweepInterval      time.Duration
	StalenessThreshold time.Duration
}

// Sweeper periodically flags in_progress jobs with no recent progress. It
// only observes and alerts; requeueing a job whose worker may merely be slow
// would risk double-processing, so state is never touched.
type Sweeper struct {
	logger    *slog.Logger
	lister    StuckJobLister
	events    EventPublisher
	interval  time.Duration
	threshold time.Duration
}

// NewSweeper creates a Sweeper instance
func NewSweeper(cfg *Config) *Sweeper {
	return &Sweeper{
		logger:    cfg.Logger,
		lister:    cfg.Lister,
		events:    cfg.Events,
		interval:  cfg.SweepInterval,
		threshold: cfg.StalenessThreshold,
	}
}

// Run sweeps on a fixed interval until the context is canceled
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Stuck-job sweeper started",
		slog.Duration("sweep_interval", s.interval),
		slog.Duration("staleness_threshold", s.threshold),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stuck-job sweeper stopped")
			return ctx.Err()

		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one detection pass
func (s *Sweeper) Sweep(ctx context.Context) {
	stuck, err := s.lister.ListStuckJobs(ctx, s.threshold)
	if err != nil {
		s.logger.Error("Stuck-job sweep failed",
			slog.Any("error", err),
		)
		return
	}

	if len(stuck) == 0 {
		s.logger.Debug("No stuck jobs found")
		return
	}

	for _, job := range stuck {
		s.logger.Warn("Stuck job detected",
			slog.String("job_id", job.JobID),
			slog.String("customer_ref", job.CustomerRef),
			slog.Int("package_size", job.PackageSize),
			slog.String("stale_for", job.StaleFor),
		)

		if s.events == nil {
			continue
		}

		event := &domain.JobEvent{
			Type:        domain.EventJobStuck,
			JobID:       job.JobID,
			CustomerRef: job.CustomerRef,
			Status:      domain.JobStatusInProgress,
			OccurredAt:  time.Now().UTC(),
		}
		if err := s.events.PublishJobEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish stuck-job event",
				slog.String("job_id", job.JobID),
				slog.Any("error", err),
			)
		}
	}
}
