package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtm-dev/dirsubmit-be/internal/progress"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

const testJobID = "4f2a9c1e-8b3d-4e5f-9a1b-2c3d4e5f6a7b"

type fakeQueueService struct {
	claimJob    *domain.Job
	claimErr    error
	reportErr   error
	completeErr error
	createJob   *domain.Job
	createErr   error

	claimedBy      string
	lastReport     queue.ReportParams
	completedID    string
	completeStatus string
}

func (f *fakeQueueService) CreateJob(_ context.Context, _ queue.CreateJobParams) (*domain.Job, error) {
	return f.createJob, f.createErr
}

func (f *fakeQueueService) ClaimNextJob(_ context.Context, workerID string) (*domain.Job, error) {
	f.claimedBy = workerID
	return f.claimJob, f.claimErr
}

func (f *fakeQueueService) ReportDirectoryResult(_ context.Context, params queue.ReportParams) error {
	f.lastReport = params
	return f.reportErr
}

func (f *fakeQueueService) CompleteJob(_ context.Context, jobID, status, _ string) error {
	f.completedID = jobID
	f.completeStatus = status
	return f.completeErr
}

type fakeProgressReader struct {
	progress *progress.JobProgress
	err      error
	rows     []storage.JobOverviewRow
	stuck    []progress.StuckJob
}

func (f *fakeProgressReader) GetJobProgress(_ context.Context, _ string) (*progress.JobProgress, error) {
	return f.progress, f.err
}

func (f *fakeProgressReader) ListJobs(_ context.Context, _ storage.JobFilter) ([]storage.JobOverviewRow, error) {
	return f.rows, f.err
}

func (f *fakeProgressReader) ListStuckJobs(_ context.Context, _ time.Duration) ([]progress.StuckJob, error) {
	return f.stuck, f.err
}

type fakeJobReader struct {
	job     *domain.Job
	results []domain.SubmissionResult
	err     error
}

func (f *fakeJobReader) GetJob(_ context.Context, _ string) (*domain.Job, error) {
	return f.job, f.err
}

func (f *fakeJobReader) ListSubmissionResults(_ context.Context, _ string) ([]domain.SubmissionResult, error) {
	return f.results, f.err
}

func setupTestRouter(deps *Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	h := NewJobHandler(deps)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("worker_id", "worker-1")
		c.Next()
	})
	r.POST("/api/v1/queue/claim", h.ClaimJob)
	r.POST("/api/v1/queue/jobs/:job_id/results", h.ReportResult)
	r.POST("/api/v1/queue/jobs/:job_id/complete", h.CompleteJob)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClaimJob(t *testing.T) {
	started := time.Now().UTC()
	svc := &fakeQueueService{
		claimJob: &domain.Job{
			ID:              testJobID,
			CustomerRef:     "cust-1",
			PackageSize:     100,
			PriorityLevel:   1,
			Status:          domain.JobStatusInProgress,
			BusinessPayload: json.RawMessage(`{"name":"Acme"}`),
			StartedAt:       &started,
		},
	}
	r := setupTestRouter(&Dependencies{Queue: svc})

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/claim", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "worker-1", svc.claimedBy)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var job map[string]interface{}
	require.NoError(t, json.Unmarshal(resp["job"], &job))
	assert.Equal(t, testJobID, job["job_id"])
	assert.Equal(t, "cust-1", job["customer_ref"])
	assert.NotEmpty(t, job["started_at"])
}

func TestClaimJob_EmptyQueue(t *testing.T) {
	r := setupTestRouter(&Dependencies{Queue: &fakeQueueService{}})

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/claim", nil)

	assert.Equal(t, http.StatusOK, w.Code, "an empty queue is not an error")
	assert.JSONEq(t, `{"job":null}`, w.Body.String())
}

func TestReportResult(t *testing.T) {
	svc := &fakeQueueService{}
	r := setupTestRouter(&Dependencies{Queue: svc})

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/jobs/"+testJobID+"/results", gin.H{
		"directory_name": "yelp.com",
		"status":         "submitted",
		"response_log":   gin.H{"listing_url": "https://yelp.com/biz/acme"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, testJobID, svc.lastReport.JobID)
	assert.Equal(t, "yelp.com", svc.lastReport.DirectoryName)
	assert.Equal(t, "worker-1", svc.lastReport.WorkerID)
}

func TestReportResult_Errors(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		body       gin.H
		serviceErr error
		wantStatus int
	}{
		{
			name:       "malformed job id",
			jobID:      "not-a-uuid",
			body:       gin.H{"directory_name": "yelp.com", "status": "submitted"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing directory name",
			jobID:      testJobID,
			body:       gin.H{"status": "submitted"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown job",
			jobID:      testJobID,
			body:       gin.H{"directory_name": "yelp.com", "status": "submitted"},
			serviceErr: domain.ErrJobNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "job not in progress",
			jobID: testJobID,
			body:  gin.H{"directory_name": "yelp.com", "status": "submitted"},
			serviceErr: &domain.InvalidStateError{
				JobID:     testJobID,
				Status:    domain.JobStatusComplete,
				Operation: "report directory result",
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(&Dependencies{Queue: &fakeQueueService{reportErr: tt.serviceErr}})

			w := doJSON(t, r, http.MethodPost, "/api/v1/queue/jobs/"+tt.jobID+"/results", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCompleteJob(t *testing.T) {
	svc := &fakeQueueService{}
	r := setupTestRouter(&Dependencies{Queue: svc})

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/jobs/"+testJobID+"/complete", gin.H{
		"status": "complete",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, testJobID, svc.completedID)
	assert.Equal(t, domain.JobStatusComplete, svc.completeStatus)
}

func TestCompleteJob_Errors(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		body       gin.H
		serviceErr error
		wantStatus int
	}{
		{
			name:       "malformed job id",
			jobID:      "not-a-uuid",
			body:       gin.H{"status": "complete"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing status",
			jobID:      testJobID,
			body:       gin.H{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown job",
			jobID:      testJobID,
			body:       gin.H{"status": "complete"},
			serviceErr: domain.ErrJobNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "conflicting terminal status",
			jobID: testJobID,
			body:  gin.H{"status": "failed", "error_message": "gave up"},
			serviceErr: &domain.InvalidStateError{
				JobID:     testJobID,
				Status:    domain.JobStatusComplete,
				Operation: `complete with status "failed"`,
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupTestRouter(&Dependencies{Queue: &fakeQueueService{completeErr: tt.serviceErr}})

			w := doJSON(t, r, http.MethodPost, "/api/v1/queue/jobs/"+tt.jobID+"/complete", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestConflictResponseIncludesJobStatus(t *testing.T) {
	r := setupTestRouter(&Dependencies{Queue: &fakeQueueService{
		completeErr: &domain.InvalidStateError{
			JobID:     testJobID,
			Status:    domain.JobStatusComplete,
			Operation: `complete with status "failed"`,
		},
	}})

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/jobs/"+testJobID+"/complete", gin.H{
		"status": "failed",
	})

	require.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.JobStatusComplete, resp["job_status"])
}
