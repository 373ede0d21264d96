package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
)

const jobColumns = `
	id, customer_ref, package_size, priority_level, status,
	business_payload, error_message, created_at, started_at, completed_at, updated_at`

// Storage handles all database operations for the job queue
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a new pending job
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			id, customer_ref, package_size, priority_level,
			status, business_payload, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.CustomerRef,
		job.PackageSize,
		job.PriorityLevel,
		job.Status,
		job.BusinessPayload,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by its ID
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimNextJob atomically claims the next pending job: lowest priority_level
// first, oldest created_at within a priority band. The subselect takes a row
// lock with SKIP LOCKED so concurrent callers never claim the same job.
// Returns (nil, nil) when no pending job exists.
func (s *Storage) ClaimNextJob(ctx context.Context) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $2
			ORDER BY priority_level ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusInProgress, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return &job, nil
}

// SubmissionReport carries one worker-reported directory outcome.
// ResponseLog must be a JSON array holding this attempt's entry so that the
// upsert can append it to the history of prior attempts.
type SubmissionReport struct {
	ID            string
	JobID         string
	DirectoryName string
	Status        string
	ResponseLog   json.RawMessage
}

// UpsertSubmissionResult inserts or updates the result row for
// (job_id, directory_name). A re-report over a failed row counts as a retry:
// retry_count increments and the new log entry is appended rather than
// replacing the old ones.
func (s *Storage) UpsertSubmissionResult(ctx context.Context, report *SubmissionReport) error {
	query := `
		INSERT INTO submission_results (
			id, job_id, directory_name, status, response_log, retry_count, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, 0, NOW()
		)
		ON CONFLICT (job_id, directory_name) DO UPDATE SET
			status = EXCLUDED.status,
			response_log = submission_results.response_log || EXCLUDED.response_log,
			retry_count = submission_results.retry_count +
				CASE WHEN submission_results.status = $6 THEN 1 ELSE 0 END,
			submitted_at = EXCLUDED.submitted_at
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.JobID,
		report.DirectoryName,
		report.Status,
		report.ResponseLog,
		domain.ResultStatusFailed,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert submission result: %w", err)
	}

	return nil
}

// FinalizeJob moves an in_progress job into a terminal status, setting
// completed_at exactly once. Returns the number of rows updated; zero means
// the job was not in_progress (or does not exist) and the caller decides
// whether that is an idempotent repeat or a conflict.
func (s *Storage) FinalizeJob(ctx context.Context, jobID, status, errorMessage string) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = NULLIF($2, ''),
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMessage, jobID, domain.JobStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// ResultCounts holds per-job submission tallies
type ResultCounts struct {
	Submitted int `db:"submitted_count"`
	Failed    int `db:"failed_count"`
}

// CountResults tallies submitted and failed directories for a job
func (s *Storage) CountResults(ctx context.Context, jobID string) (*ResultCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2) AS submitted_count,
			COUNT(*) FILTER (WHERE status = $3) AS failed_count
		FROM submission_results
		WHERE job_id = $1
	`

	var counts ResultCounts
	err := s.db.GetContext(ctx, &counts, query, jobID, domain.ResultStatusSubmitted, domain.ResultStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count submission results: %w", err)
	}

	return &counts, nil
}

// ListSubmissionResults returns all result rows for a job, oldest first
func (s *Storage) ListSubmissionResults(ctx context.Context, jobID string) ([]domain.SubmissionResult, error) {
	query := `
		SELECT id, job_id, directory_name, status, response_log, retry_count, submitted_at
		FROM submission_results
		WHERE job_id = $1
		ORDER BY submitted_at ASC, directory_name ASC
	`

	var results []domain.SubmissionResult
	if err := s.db.SelectContext(ctx, &results, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list submission results: %w", err)
	}

	return results, nil
}

// ListStuckJobs returns in_progress jobs whose claim predates the cutoff and
// which have had no result reported since the cutoff. Read-only: flagging is
// a monitoring signal, never an automatic requeue.
func (s *Storage) ListStuckJobs(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs j
		WHERE j.status = $1
		  AND j.started_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM submission_results r
			WHERE r.job_id = j.id AND r.submitted_at >= $2
		  )
		ORDER BY j.started_at ASC
	`

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, domain.JobStatusInProgress, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list stuck jobs: %w", err)
	}

	return jobs, nil
}

// JobFilter narrows and paginates the monitoring listing
type JobFilter struct {
	Status      string
	CustomerRef string
	PageSize    int
	Cursor      *JobCursor
}

// JobCursor is the keyset position within the priority/creation ordering
type JobCursor struct {
	PriorityLevel int
	CreatedAt     time.Time
	JobID         string
}

// JobOverviewRow is one row of the monitoring read model
type JobOverviewRow struct {
	JobID          string     `db:"id"`
	CustomerRef    string     `db:"customer_ref"`
	PackageSize    int        `db:"package_size"`
	PriorityLevel  int        `db:"priority_level"`
	Status         string     `db:"status"`
	SubmittedCount int        `db:"submitted_count"`
	FailedCount    int        `db:"failed_count"`
	CreatedAt      time.Time  `db:"created_at"`
	StartedAt      *time.Time `db:"started_at"`
}

// ListJobOverview returns jobs with their submission tallies, ordered by
// priority then creation time (the same ordering the dequeue uses), with
// keyset pagination.
func (s *Storage) ListJobOverview(ctx context.Context, filter JobFilter) ([]JobOverviewRow, error) {
	query := `
		SELECT
			j.id, j.customer_ref, j.package_size, j.priority_level, j.status,
			COALESCE(r.submitted_count, 0) AS submitted_count,
			COALESCE(r.failed_count, 0) AS failed_count,
			j.created_at, j.started_at
		FROM jobs j
		LEFT JOIN (
			SELECT job_id,
				COUNT(*) FILTER (WHERE status = 'submitted') AS submitted_count,
				COUNT(*) FILTER (WHERE status = 'failed') AS failed_count
			FROM submission_results
			GROUP BY job_id
		) r ON r.job_id = j.id
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND j.status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.CustomerRef != "" {
		query += fmt.Sprintf(" AND j.customer_ref = $%d", argIdx)
		args = append(args, filter.CustomerRef)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (j.priority_level, j.created_at, j.id) > ($%d, $%d, $%d)", argIdx, argIdx+1, argIdx+2)
		args = append(args, filter.Cursor.PriorityLevel, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 3
	}

	query += " ORDER BY j.priority_level ASC, j.created_at ASC, j.id ASC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []JobOverviewRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list job overview: %w", err)
	}

	return rows, nil
}
