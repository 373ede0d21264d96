package domain

import "time"

// Job lifecycle event types published to the message broker for external
// collaborators (dashboard, notifications). Events are advisory; the queue
// never depends on them being delivered.
const (
	EventJobCreated   = "job.created"
	EventJobClaimed   = "job.claimed"
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
	EventJobStuck     = "job.stuck"
)

// JobEvent is the message body for lifecycle events.
type JobEvent struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	CustomerRef string    `json:"customer_ref"`
	Status      string    `json:"status"`
	WorkerID    string    `json:"worker_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
