package domain

import (
	"context"
	"time"
)

// JobRepository is the job store consumed by intake, the worker and the sweeper.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// ListClaimable returns up to limit queued jobs without a live lease.
	ListClaimable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Job, error)
	// Claim takes the lease on a queued job. It returns ErrClaimConflict when the
	// job is no longer queued or another lease is still live.
	Claim(ctx context.Context, jobID string, now time.Time, lease time.Duration) (*Job, error)
	// Renew moves the lease of claim number attempt forward to now. It returns
	// ErrClaimConflict once the job left queued or was claimed again.
	Renew(ctx context.Context, jobID string, attempt int, now time.Time) error
	Complete(ctx context.Context, jobID string, ref ArtifactRef, now time.Time) error
	Fail(ctx context.Context, jobID string, now time.Time) error
	// FailExhausted fails queued jobs whose lease expired after maxClaims claims.
	FailExhausted(ctx context.Context, now time.Time, lease time.Duration, maxClaims int) (int64, error)
}
