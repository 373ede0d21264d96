package progress

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/internal/queue/storage"
)

type fakeStore struct {
	job    *domain.Job
	counts *storage.ResultCounts
	stuck  []domain.Job
	err    error
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil || f.job.ID != jobID {
		return nil, domain.ErrJobNotFound
	}
	return f.job, nil
}

func (f *fakeStore) CountResults(_ context.Context, _ string) (*storage.ResultCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

func (f *fakeStore) ListStuckJobs(_ context.Context, _ time.Time) ([]domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stuck, nil
}

func (f *fakeStore) ListJobOverview(_ context.Context, _ storage.JobFilter) ([]storage.JobOverviewRow, error) {
	return nil, nil
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		packageSize int
		submitted   int
		failed      int
		wantPending int
		wantPct     float64
	}{
		{
			name:        "partial progress",
			packageSize: 50,
			submitted:   30,
			failed:      5,
			wantPending: 15,
			wantPct:     70,
		},
		{
			name:        "nothing reported",
			packageSize: 100,
			wantPending: 100,
			wantPct:     0,
		},
		{
			name:        "all submitted",
			packageSize: 50,
			submitted:   50,
			wantPending: 0,
			wantPct:     100,
		},
		{
			name:        "overreported clamps to package size",
			packageSize: 50,
			submitted:   48,
			failed:      7,
			wantPending: 0,
			wantPct:     100,
		},
		{
			name:        "zero package size",
			packageSize: 0,
			wantPending: 0,
			wantPct:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute("job-1", domain.JobStatusInProgress, tt.packageSize, tt.submitted, tt.failed)

			assert.Equal(t, tt.submitted, got.SubmittedCount)
			assert.Equal(t, tt.failed, got.FailedCount)
			assert.Equal(t, tt.wantPending, got.PendingCount)
			assert.InDelta(t, tt.wantPct, got.CompletionPercentage, 0.001)
		})
	}
}

func TestAggregator_GetJobProgress(t *testing.T) {
	store := &fakeStore{
		job: &domain.Job{
			ID:          "job-1",
			Status:      domain.JobStatusInProgress,
			PackageSize: 100,
		},
		counts: &storage.ResultCounts{Submitted: 40, Failed: 10},
	}
	agg := NewAggregator(store, nil, 0, slog.New(slog.DiscardHandler))

	got, err := agg.GetJobProgress(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, domain.JobStatusInProgress, got.Status)
	assert.Equal(t, 40, got.SubmittedCount)
	assert.Equal(t, 10, got.FailedCount)
	assert.Equal(t, 50, got.PendingCount)
	assert.InDelta(t, 50.0, got.CompletionPercentage, 0.001)
}

func TestAggregator_GetJobProgress_NotFound(t *testing.T) {
	agg := NewAggregator(&fakeStore{}, nil, 0, slog.New(slog.DiscardHandler))

	_, err := agg.GetJobProgress(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestAggregator_Invalidate_NoCache(t *testing.T) {
	agg := NewAggregator(&fakeStore{}, nil, 0, slog.New(slog.DiscardHandler))

	assert.NoError(t, agg.Invalidate(context.Background(), "job-1"))
}

func TestAggregator_ListStuckJobs(t *testing.T) {
	started := time.Now().UTC().Add(-3 * time.Hour)
	store := &fakeStore{
		stuck: []domain.Job{
			{
				ID:          "job-1",
				CustomerRef: "cust-1",
				PackageSize: 300,
				Status:      domain.JobStatusInProgress,
				StartedAt:   &started,
			},
		},
	}
	agg := NewAggregator(store, nil, 0, slog.New(slog.DiscardHandler))

	stuck, err := agg.ListStuckJobs(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, stuck, 1)

	assert.Equal(t, "job-1", stuck[0].JobID)
	assert.Equal(t, "cust-1", stuck[0].CustomerRef)
	assert.Equal(t, 300, stuck[0].PackageSize)
	assert.NotEmpty(t, stuck[0].StaleFor)
}

func TestAggregator_ListStuckJobs_Empty(t *testing.T) {
	agg := NewAggregator(&fakeStore{}, nil, 0, slog.New(slog.DiscardHandler))

	stuck, err := agg.ListStuckJobs(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}
