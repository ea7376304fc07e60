package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mediagen/internal/domain"
)

// videoJobRecord is the GORM row shape of a job.
type videoJobRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	UserID          string `gorm:"size:128"`
	ModelID         string `gorm:"size:64;not null"`
	Prompt          string `gorm:"type:text"`
	ImageURL        string `gorm:"type:text;not null"`
	Width           int
	Height          int
	Duration        int
	Motion          string  `gorm:"size:32"`
	Status          string  `gorm:"size:16;index:idx_video_jobs_status_created;not null"`
	Result          *string `gorm:"type:text"`
	ResultExpiresAt *time.Time
	ClaimedAt       *time.Time
	Attempts        int
	CreatedAt       time.Time `gorm:"index:idx_video_jobs_status_created"`
	UpdatedAt       time.Time
}

func (videoJobRecord) TableName() string { return "video_jobs" }

func recordFromJob(job *domain.Job) videoJobRecord {
	rec := videoJobRecord{
		ID:              job.ID,
		UserID:          job.UserID,
		ModelID:         job.ModelID,
		Prompt:          job.Parameters.Prompt,
		ImageURL:        job.Parameters.ImageURL,
		Width:           job.Parameters.Width,
		Height:          job.Parameters.Height,
		Duration:        job.Parameters.Duration,
		Motion:          job.Parameters.Motion,
		Status:          string(job.Status),
		ResultExpiresAt: job.ResultExpiresAt,
		ClaimedAt:       job.ClaimedAt,
		Attempts:        job.Attempts,
		CreatedAt:       job.CreatedAt.UTC(),
		UpdatedAt:       job.UpdatedAt.UTC(),
	}
	if job.Result != "" {
		result := job.Result
		rec.Result = &result
	}
	return rec
}

func (rec videoJobRecord) toJob() domain.Job {
	job := domain.Job{
		ID:      rec.ID,
		UserID:  rec.UserID,
		ModelID: rec.ModelID,
		Parameters: domain.JobParameters{
			Prompt:   rec.Prompt,
			ImageURL: rec.ImageURL,
			Width:    rec.Width,
			Height:   rec.Height,
			Duration: rec.Duration,
			Motion:   rec.Motion,
		},
		Status:          domain.JobStatus(rec.Status),
		ResultExpiresAt: rec.ResultExpiresAt,
		ClaimedAt:       rec.ClaimedAt,
		Attempts:        rec.Attempts,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
	if rec.Result != nil {
		job.Result = *rec.Result
	}
	return job
}

// JobRepositoryGorm implements domain.JobRepository with GORM; used with SQLite.
type JobRepositoryGorm struct {
	db *gorm.DB
}

func NewGormJobRepository(db *gorm.DB) *JobRepositoryGorm {
	return &JobRepositoryGorm{db: db}
}

// Migrate creates the video_jobs table.
func (r *JobRepositoryGorm) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&videoJobRecord{})
}

func (r *JobRepositoryGorm) Create(ctx context.Context, job *domain.Job) error {
	rec := recordFromJob(job)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert video job: %w", err)
	}
	return nil
}

func (r *JobRepositoryGorm) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var rec videoJobRecord
	err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job := rec.toJob()
	return &job, nil
}

func (r *JobRepositoryGorm) ListClaimable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Job, error) {
	var recs []videoJobRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.JobStatusQueued)).
		Where("(claimed_at IS NULL OR claimed_at <= ?)", now.Add(-lease).UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("select claimable jobs: %w", err)
	}
	jobs := make([]domain.Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, rec.toJob())
	}
	return jobs, nil
}

func (r *JobRepositoryGorm) Claim(ctx context.Context, jobID string, now time.Time, lease time.Duration) (*domain.Job, error) {
	res := r.db.WithContext(ctx).
		Model(&videoJobRecord{}).
		Where("id = ? AND status = ?", jobID, string(domain.JobStatusQueued)).
		Where("(claimed_at IS NULL OR claimed_at <= ?)", now.Add(-lease).UTC()).
		Updates(map[string]any{
			"claimed_at": now.UTC(),
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("claim job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrClaimConflict
	}
	return r.GetByID(ctx, jobID)
}

func (r *JobRepositoryGorm) Renew(ctx context.Context, jobID string, attempt int, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&videoJobRecord{}).
		Where("id = ? AND status = ? AND attempts = ?", jobID, string(domain.JobStatusQueued), attempt).
		Updates(map[string]any{
			"claimed_at": now.UTC(),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("renew claim: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (r *JobRepositoryGorm) Complete(ctx context.Context, jobID string, ref domain.ArtifactRef, now time.Time) error {
	return r.transition(ctx, jobID, map[string]any{
		"status":            string(domain.JobStatusCompleted),
		"result":            ref.URL,
		"result_expires_at": ref.ExpiresAt.UTC(),
		"updated_at":        now.UTC(),
	})
}

func (r *JobRepositoryGorm) Fail(ctx context.Context, jobID string, now time.Time) error {
	return r.transition(ctx, jobID, map[string]any{
		"status":     string(domain.JobStatusFailed),
		"updated_at": now.UTC(),
	})
}

func (r *JobRepositoryGorm) FailExhausted(ctx context.Context, now time.Time, lease time.Duration, maxClaims int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&videoJobRecord{}).
		Where("status = ?", string(domain.JobStatusQueued)).
		Where("claimed_at IS NOT NULL AND claimed_at <= ?", now.Add(-lease).UTC()).
		Where("attempts >= ?", maxClaims).
		Updates(map[string]any{
			"status":     string(domain.JobStatusFailed),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("fail exhausted jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *JobRepositoryGorm) transition(ctx context.Context, jobID string, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&videoJobRecord{}).
		Where("id = ? AND status = ?", jobID, string(domain.JobStatusQueued)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update job status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

var _ domain.JobRepository = (*JobRepositoryGorm)(nil)
