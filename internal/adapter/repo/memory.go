package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediagen/internal/domain"
)

// JobRepositoryMemory keeps jobs in process memory. It backs JOB_STORE=memory
// for local runs and the worker tests.
type JobRepositoryMemory struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewMemoryJobRepository() *JobRepositoryMemory {
	return &JobRepositoryMemory{jobs: make(map[string]*domain.Job)}
}

func (r *JobRepositoryMemory) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *JobRepositoryMemory) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *JobRepositoryMemory) ListClaimable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Job
	for _, job := range r.jobs {
		if job.Claimable(now, lease) {
			out = append(out, *job)
		}
	}
	// Map order is random; creation order keeps test runs deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobRepositoryMemory) Claim(ctx context.Context, jobID string, now time.Time, lease time.Duration) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !job.Claimable(now, lease) {
		return nil, domain.ErrClaimConflict
	}
	claimedAt := now
	job.ClaimedAt = &claimedAt
	job.Attempts++
	job.UpdatedAt = now
	cp := *job
	return &cp, nil
}

func (r *JobRepositoryMemory) Renew(ctx context.Context, jobID string, attempt int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusQueued || job.Attempts != attempt {
		return domain.ErrClaimConflict
	}
	claimedAt := now
	job.ClaimedAt = &claimedAt
	job.UpdatedAt = now
	return nil
}

func (r *JobRepositoryMemory) Complete(ctx context.Context, jobID string, ref domain.ArtifactRef, now time.Time) error {
	return r.transition(jobID, now, func(job *domain.Job) {
		expires := ref.ExpiresAt
		job.Status = domain.JobStatusCompleted
		job.Result = ref.URL
		job.ResultExpiresAt = &expires
	})
}

func (r *JobRepositoryMemory) Fail(ctx context.Context, jobID string, now time.Time) error {
	return r.transition(jobID, now, func(job *domain.Job) {
		job.Status = domain.JobStatusFailed
	})
}

func (r *JobRepositoryMemory) FailExhausted(ctx context.Context, now time.Time, lease time.Duration, maxClaims int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusQueued || job.ClaimedAt == nil {
			continue
		}
		if job.ClaimExpired(now, lease) && job.Attempts >= maxClaims {
			job.Status = domain.JobStatusFailed
			job.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *JobRepositoryMemory) transition(jobID string, now time.Time, apply func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return domain.ErrClaimConflict
	}
	apply(job)
	job.UpdatedAt = now
	return nil
}

var _ domain.JobRepository = (*JobRepositoryMemory)(nil)
