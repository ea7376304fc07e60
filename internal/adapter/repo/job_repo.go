package repo

import (
	"context"
	"fmt"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// EnsureSchema creates the video_jobs table when it does not exist yet.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnsureVideoJobsSchema)
	return err
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	p := job.Parameters
	_, err := r.sql.Exec(ctx, sqlinline.QInsertVideoJob,
		job.ID,
		job.UserID,
		job.ModelID,
		p.Prompt,
		p.ImageURL,
		p.Width,
		p.Height,
		p.Duration,
		p.Motion,
		string(job.Status),
		job.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert video job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectVideoJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositoryPG) ListClaimable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectClaimableVideoJobs, now.Add(-lease).UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("select claimable jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string, now time.Time, lease time.Duration) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QClaimVideoJob, jobID, now.UTC(), now.Add(-lease).UTC()))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrClaimConflict
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (r *JobRepositoryPG) Renew(ctx context.Context, jobID string, attempt int, now time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRenewVideoJobClaim, jobID, attempt, now.UTC())
	if err != nil {
		return fmt.Errorf("renew claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, ref domain.ArtifactRef, now time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteVideoJob, jobID, ref.URL, ref.ExpiresAt.UTC(), now.UTC())
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (r *JobRepositoryPG) Fail(ctx context.Context, jobID string, now time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailVideoJob, jobID, now.UTC())
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (r *JobRepositoryPG) FailExhausted(ctx context.Context, now time.Time, lease time.Duration, maxClaims int) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailExhaustedVideoJobs, now.UTC(), now.Add(-lease).UTC(), maxClaims)
	if err != nil {
		return 0, fmt.Errorf("fail exhausted jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job    domain.Job
		status string
		result *string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.ModelID,
		&job.Parameters.Prompt,
		&job.Parameters.ImageURL,
		&job.Parameters.Width,
		&job.Parameters.Height,
		&job.Parameters.Duration,
		&job.Parameters.Motion,
		&status,
		&result,
		&job.ResultExpiresAt,
		&job.ClaimedAt,
		&job.Attempts,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if result != nil {
		job.Result = *result
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
