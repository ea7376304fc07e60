package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

func TestSweepOnceFailsOnlyExhaustedExpiredJobs(t *testing.T) {
	ctx := context.Background()
	jobs := repo.NewMemoryJobRepository()
	lease := 15 * time.Minute
	stale := testNow.Add(-time.Hour)
	fresh := testNow.Add(-time.Minute)

	seed := func(id string, attempts int, claimedAt *time.Time) {
		job := domain.NewQueuedJob(id, "u", "pixverse-v4.5", domain.JobParameters{}, testNow.Add(-2*time.Hour))
		job.Attempts = attempts
		job.ClaimedAt = claimedAt
		require.NoError(t, jobs.Create(ctx, job))
	}
	seed("exhausted", 3, &stale)
	seed("exhausted-live-lease", 3, &fresh)
	seed("retryable", 1, &stale)
	seed("never-claimed", 0, nil)

	sweeper, err := NewSweeper(SweeperOptions{
		Jobs:       jobs,
		Logger:     infra.NewNopLogger(),
		ClaimLease: lease,
		MaxClaims:  3,
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	want := map[string]domain.JobStatus{
		"exhausted":            domain.JobStatusFailed,
		"exhausted-live-lease": domain.JobStatusQueued,
		"retryable":            domain.JobStatusQueued,
		"never-claimed":        domain.JobStatusQueued,
	}
	for id, status := range want {
		job, err := jobs.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, job.Status, id)
	}
}

func TestNewSweeperSchedule(t *testing.T) {
	jobs := repo.NewMemoryJobRepository()

	s, err := NewSweeper(SweeperOptions{Jobs: jobs})
	require.NoError(t, err)
	assert.Equal(t, DefaultSweepSchedule, s.spec)
	next := s.schedule.Next(testNow)
	assert.Equal(t, testNow.Add(time.Minute), next)

	_, err = NewSweeper(SweeperOptions{Jobs: jobs, Schedule: "*/5 * * * *"})
	require.NoError(t, err)

	_, err = NewSweeper(SweeperOptions{Jobs: jobs, Schedule: "every now and then"})
	require.Error(t, err)

	_, err = NewSweeper(SweeperOptions{})
	require.Error(t, err)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	s, err := NewSweeper(SweeperOptions{Jobs: repo.NewMemoryJobRepository(), Logger: infra.NewNopLogger()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
