package domain

import (
	"encoding/json"
	"time"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// SubmissionResult status constants
const (
	ResultStatusPending   = "pending"
	ResultStatusSubmitted = "submitted"
	ResultStatusFailed    = "failed"
	ResultStatusRetry     = "retry"
)

// PackageSizes lists the directory counts sold as submission packages.
var PackageSizes = []int{50, 100, 300, 500}

// Job represents one customer's directory-submission campaign.
type Job struct {
	ID              string          `db:"id"`
	CustomerRef     string          `db:"customer_ref"`
	PackageSize     int             `db:"package_size"`
	PriorityLevel   int             `db:"priority_level"`
	Status          string          `db:"status"`
	BusinessPayload json.RawMessage `db:"business_payload"`
	ErrorMessage    *string         `db:"error_message"`
	CreatedAt       time.Time       `db:"created_at"`
	StartedAt       *time.Time      `db:"started_at"`
	CompletedAt     *time.Time      `db:"completed_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// SubmissionResult is the outcome record for one directory within one job.
// ResponseLog is a JSON array of attempt entries; re-reports append to it.
type SubmissionResult struct {
	ID            string          `db:"id"`
	JobID         string          `db:"job_id"`
	DirectoryName string          `db:"directory_name"`
	Status        string          `db:"status"`
	ResponseLog   json.RawMessage `db:"response_log"`
	RetryCount    int             `db:"retry_count"`
	SubmittedAt   time.Time       `db:"submitted_at"`
}

// IsTerminalJobStatus reports whether a job status admits no further transitions.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusComplete || status == JobStatusFailed
}

// ValidPackageSize reports whether size is one of the sold package tiers.
func ValidPackageSize(size int) bool {
	for _, s := range PackageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ValidReportStatus reports whether status is accepted from a worker report.
// Workers report per-directory outcomes; "pending" rows are never reported,
// they only exist as the derived remainder of the package.
func ValidReportStatus(status string) bool {
	switch status {
	case ResultStatusSubmitted, ResultStatusFailed, ResultStatusRetry:
		return true
	}
	return false
}

// ValidTerminalStatus reports whether status is accepted by the completion call.
func ValidTerminalStatus(status string) bool {
	return status == JobStatusComplete || status == JobStatusFailed
}
