package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

// Store is the storage surface the queue service relies on
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ClaimNextJob(ctx context.Context) (*domain.Job, error)
	UpsertSubmissionResult(ctx context.Context, report *storage.SubmissionReport) error
	FinalizeJob(ctx context.Context, jobID, status, errorMessage string) (int64, error)
}

// EventPublisher emits job lifecycle events to external collaborators
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *domain.JobEvent) error
}

// ProgressInvalidator drops any cached progress for a job after a mutation
type ProgressInvalidator interface {
	Invalidate(ctx context.Context, jobID string) error
}

// Service owns the job lifecycle state machine: pending → in_progress →
// {complete, failed}. All worker-facing mutations go through it.
type Service struct {
	store       Store
	events      EventPublisher
	invalidator ProgressInvalidator
	logger      *slog.Logger
}

// NewService creates a queue Service. events and invalidator may be nil.
func NewService(store Store, events EventPublisher, invalidator ProgressInvalidator, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		events:      events,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateJobParams carries the intake-side fields for a new job
type CreateJobParams struct {
	CustomerRef     string
	PackageSize     int
	PriorityLevel   int
	BusinessPayload json.RawMessage
}

// CreateJob inserts a new pending job. The business payload is owned by the
// customer-intake side and stored opaquely; it is never validated here.
func (s *Service) CreateJob(ctx context.Context, params CreateJobParams) (*domain.Job, error) {
	if params.CustomerRef == "" {
		return nil, fmt.Errorf("%w: customer_ref is required", domain.ErrInvalidArgument)
	}
	if !domain.ValidPackageSize(params.PackageSize) {
		return nil, fmt.Errorf("%w: unknown package size %d", domain.ErrInvalidArgument, params.PackageSize)
	}

	payload := params.BusinessPayload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:              uuid.New().String(),
		CustomerRef:     params.CustomerRef,
		PackageSize:     params.PackageSize,
		PriorityLevel:   params.PriorityLevel,
		Status:          domain.JobStatusPending,
		BusinessPayload: payload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("customer_ref", job.CustomerRef),
		slog.Int("package_size", job.PackageSize),
		slog.Int("priority_level", job.PriorityLevel),
	)

	s.publishEvent(ctx, domain.EventJobCreated, job, "")

	return job, nil
}

// ClaimNextJob claims the highest-priority pending job for the calling
// worker. Returns (nil, nil) when the queue is empty; an empty queue is a
// normal condition, not an error.
func (s *Service) ClaimNextJob(ctx context.Context, workerID string) (*domain.Job, error) {
	job, err := s.store.ClaimNextJob(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		s.logger.Debug("No pending jobs available",
			slog.String("worker_id", workerID),
		)
		return nil, nil
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", job.ID),
		slog.String("worker_id", workerID),
		slog.Int("priority_level", job.PriorityLevel),
	)

	s.publishEvent(ctx, domain.EventJobClaimed, job, workerID)

	return job, nil
}

// ReportParams carries one directory outcome from a worker
type ReportParams struct {
	JobID         string
	DirectoryName string
	Status        string
	ResponseLog   json.RawMessage
	WorkerID      string
}

// ReportDirectoryResult records a single directory outcome against an
// in_progress job. Reports against a job in any other state are rejected so
// a stale worker cannot corrupt a job it no longer owns. Reporting never
// changes job status; it is purely additive bookkeeping.
func (s *Service) ReportDirectoryResult(ctx context.Context, params ReportParams) error {
	if params.DirectoryName == "" {
		return fmt.Errorf("%w: directory_name is required", domain.ErrInvalidArgument)
	}
	if !domain.ValidReportStatus(params.Status) {
		return fmt.Errorf("%w: unknown result status %q", domain.ErrInvalidArgument, params.Status)
	}

	job, err := s.store.GetJob(ctx, params.JobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusInProgress {
		return &domain.InvalidStateError{
			JobID:     job.ID,
			Status:    job.Status,
			Operation: "report directory result",
		}
	}

	report := &storage.SubmissionReport{
		ID:            uuid.New().String(),
		JobID:         params.JobID,
		DirectoryName: params.DirectoryName,
		Status:        params.Status,
		ResponseLog:   wrapLogEntry(params.ResponseLog),
	}

	if err := s.store.UpsertSubmissionResult(ctx, report); err != nil {
		return err
	}

	s.logger.Info("Directory result reported",
		slog.String("job_id", params.JobID),
		slog.String("directory", params.DirectoryName),
		slog.String("status", params.Status),
		slog.String("worker_id", params.WorkerID),
	)

	s.invalidateProgress(ctx, params.JobID)

	return nil
}

// CompleteJob finalizes an in_progress job with a terminal status. The
// worker has final authority over "done": no check that every directory was
// attempted. Idempotent on repeat calls with the same terminal status; a
// conflicting terminal status is rejected.
func (s *Service) CompleteJob(ctx context.Context, jobID, status, errorMessage string) error {
	if !domain.ValidTerminalStatus(status) {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrInvalidArgument, status)
	}

	rowsAffected, err := s.store.FinalizeJob(ctx, jobID, status, errorMessage)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		job, err := s.store.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status == status {
			// Repeat of an already-applied completion: safe retry, no-op.
			s.logger.Debug("Duplicate completion ignored",
				slog.String("job_id", jobID),
				slog.String("status", status),
			)
			return nil
		}
		return &domain.InvalidStateError{
			JobID:     job.ID,
			Status:    job.Status,
			Operation: fmt.Sprintf("complete with status %q", status),
		}
	}

	s.logger.Info("Job finalized",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	eventType := domain.EventJobCompleted
	if status == domain.JobStatusFailed {
		eventType = domain.EventJobFailed
	}
	s.publishEvent(ctx, eventType, &domain.Job{ID: jobID, Status: status}, "")

	s.invalidateProgress(ctx, jobID)

	return nil
}

// wrapLogEntry normalizes a worker-supplied diagnostic payload into a
// single-element JSON array so the storage layer can append it to the
// response_log history.
func wrapLogEntry(entry json.RawMessage) json.RawMessage {
	if len(entry) == 0 {
		entry = json.RawMessage("null")
	}
	wrapped := make([]byte, 0, len(entry)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, entry...)
	wrapped = append(wrapped, ']')
	return wrapped
}

// publishEvent emits a lifecycle event. Events are advisory: failures are
// logged and never fail the triggering operation.
func (s *Service) publishEvent(ctx context.Context, eventType string, job *domain.Job, workerID string) {
	if s.events == nil {
		return
	}

	event := &domain.JobEvent{
		Type:        eventType,
		JobID:       job.ID,
		CustomerRef: job.CustomerRef,
		Status:      job.Status,
		WorkerID:    workerID,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.events.PublishJobEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish job event",
			slog.String("event_type", eventType),
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) invalidateProgress(ctx context.Context, jobID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, jobID); err != nil {
		s.logger.Warn("Failed to invalidate progress cache",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}
}
