package dto

import "encoding/json"

// CreateJobRequest is the intake-side payload to register a new campaign
type CreateJobRequest struct {
	CustomerRef     string          `json:"customer_ref" binding:"required"`
	PackageSize     int             `json:"package_size" binding:"required"`
	PriorityLevel   int             `json:"priority_level"`
	BusinessPayload json.RawMessage `json:"business_payload"`
}

// ClaimedJobDTO is the job view handed to a worker on claim
type ClaimedJobDTO struct {
	JobID           string          `json:"job_id"`
	CustomerRef     string          `json:"customer_ref"`
	PackageSize     int             `json:"package_size"`
	PriorityLevel   int             `json:"priority_level"`
	BusinessPayload json.RawMessage `json:"business_payload"`
	StartedAt       string          `json:"started_at"`
}

// ClaimJobResponse wraps the claim result; Job is null when the queue is
// empty, which is a normal response and not an error
type ClaimJobResponse struct {
	Job *ClaimedJobDTO `json:"job"`
}

// ReportResultRequest is one directory outcome from a worker
type ReportResultRequest struct {
	DirectoryName string          `json:"directory_name" binding:"required"`
	Status        string          `json:"status" binding:"required"`
	ResponseLog   json.RawMessage `json:"response_log"`
}

// CompleteJobRequest closes out a claimed job with a terminal status
type CompleteJobRequest struct {
	Status       string `json:"status" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// SuccessResponse acknowledges a write
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ListJobsRequest filters and paginates the monitoring listing
type ListJobsRequest struct {
	Status      string `form:"status"`
	CustomerRef string `form:"customer_ref"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

// JobOverviewDTO is one row of the monitoring read model
type JobOverviewDTO struct {
	JobID          string  `json:"job_id"`
	CustomerRef    string  `json:"customer_ref"`
	PackageSize    int     `json:"package_size"`
	PriorityLevel  int     `json:"priority_level"`
	Status         string  `json:"status"`
	SubmittedCount int     `json:"submitted_count"`
	FailedCount    int     `json:"failed_count"`
	PendingCount   int     `json:"pending_count"`
	CreatedAt      string  `json:"created_at"`
	StartedAt      *string `json:"started_at,omitempty"`
}

// ListJobsResponse is the paginated monitoring listing
type ListJobsResponse struct {
	Jobs       []JobOverviewDTO `json:"jobs"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// SubmissionResultDTO is one directory outcome row for the operator view
type SubmissionResultDTO struct {
	DirectoryName string          `json:"directory_name"`
	Status        string          `json:"status"`
	ResponseLog   json.RawMessage `json:"response_log"`
	RetryCount    int             `json:"retry_count"`
	SubmittedAt   string          `json:"submitted_at"`
}

// ListResultsResponse holds all reported directory outcomes for one job
type ListResultsResponse struct {
	JobID   string                `json:"job_id"`
	Results []SubmissionResultDTO `json:"results"`
}

// JobDetailDTO is the full job record for operators
type JobDetailDTO struct {
	JobID           string          `json:"job_id"`
	CustomerRef     string          `json:"customer_ref"`
	PackageSize     int             `json:"package_size"`
	PriorityLevel   int             `json:"priority_level"`
	Status          string          `json:"status"`
	BusinessPayload json.RawMessage `json:"business_payload"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       string          `json:"created_at"`
	StartedAt       *string         `json:"started_at,omitempty"`
	CompletedAt     *string         `json:"completed_at,omitempty"`
}
