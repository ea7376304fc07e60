package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

// exerciseJobRepository runs the claim/finalize semantics every store must share.
func exerciseJobRepository(t *testing.T, repo domain.JobRepository) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lease := 15 * time.Minute

	first := domain.NewQueuedJob("11111111-1111-4111-8111-111111111111", "user-1", "pixverse-v4.5",
		domain.JobParameters{Prompt: "a cat", ImageURL: "https://x/img.png", Width: 512, Height: 512, Duration: 5}, now)
	second := domain.NewQueuedJob("22222222-2222-4222-8222-222222222222", "user-1", "kling-v2.0",
		domain.JobParameters{ImageURL: "https://x/img2.png", Width: 512, Height: 512, Duration: 5}, now.Add(time.Second))
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	jobs, err := repo.ListClaimable(ctx, now.Add(time.Minute), lease, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	claimed, err := repo.Claim(ctx, first.ID, now.Add(time.Minute), lease)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)

	_, err = repo.Claim(ctx, first.ID, now.Add(2*time.Minute), lease)
	require.ErrorIs(t, err, domain.ErrClaimConflict)

	// A renewed lease outlives the original window, so neither the poller nor
	// the sweeper may take the job while it is still being processed.
	require.NoError(t, repo.Renew(ctx, first.ID, claimed.Attempts, now.Add(14*time.Minute)))
	swept, err := repo.FailExhausted(ctx, now.Add(20*time.Minute), lease, 1)
	require.NoError(t, err)
	assert.Zero(t, swept)
	_, err = repo.Claim(ctx, first.ID, now.Add(20*time.Minute), lease)
	require.ErrorIs(t, err, domain.ErrClaimConflict)
	require.ErrorIs(t, repo.Renew(ctx, first.ID, claimed.Attempts+1, now.Add(21*time.Minute)), domain.ErrClaimConflict)

	jobs, err = repo.ListClaimable(ctx, now.Add(2*time.Minute), lease, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, second.ID, jobs[0].ID)

	ref := domain.ArtifactRef{URL: "https://cdn/signed.mp4", ExpiresAt: now.Add(7 * 24 * time.Hour)}
	require.NoError(t, repo.Complete(ctx, first.ID, ref, now.Add(3*time.Minute)))
	require.ErrorIs(t, repo.Fail(ctx, first.ID, now.Add(4*time.Minute)), domain.ErrClaimConflict)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, ref.URL, got.Result)

	require.ErrorIs(t, repo.Renew(ctx, first.ID, claimed.Attempts, now.Add(4*time.Minute)), domain.ErrClaimConflict)

	require.NoError(t, repo.Fail(ctx, second.ID, now.Add(5*time.Minute)))
	got, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Empty(t, got.Result)

	_, err = repo.GetByID(ctx, "33333333-3333-4333-8333-333333333333")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepositoryContract(t *testing.T) {
	exerciseJobRepository(t, NewMemoryJobRepository())
}

func TestGormRepositoryContract(t *testing.T) {
	exerciseJobRepository(t, setupGormRepo(t))
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryJobRepository()
	ctx := context.Background()
	job := domain.NewQueuedJob("job-1", "", "kling-v2.0", domain.JobParameters{}, time.Now())
	require.NoError(t, repo.Create(ctx, job))

	job.Status = domain.JobStatusCompleted
	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, got.Status)

	got.Status = domain.JobStatusFailed
	again, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, again.Status)
}
