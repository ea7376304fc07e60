package domain

import "time"

// JobStatus enumerates job lifecycle states visible to callers.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// DefaultMotion is forwarded to video backends that accept a motion hint.
const DefaultMotion = "normal"

// JobParameters are the generation inputs captured at intake. The worker
// forwards them to the backend without interpreting them.
type JobParameters struct {
	Prompt   string
	ImageURL string
	Width    int
	Height   int
	Duration int
	Motion   string
}

// Job tracks one image-to-video generation request.
type Job struct {
	ID              string
	UserID          string
	ModelID         string
	Parameters      JobParameters
	Status          JobStatus
	Result          string
	ResultExpiresAt *time.Time
	ClaimedAt       *time.Time
	Attempts        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewQueuedJob builds the initial record written by intake.
func NewQueuedJob(id, userID, modelID string, params JobParameters, now time.Time) *Job {
	return &Job{
		ID:         id,
		UserID:     userID,
		ModelID:    modelID,
		Parameters: params,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ClaimExpired reports whether the job has no live lease at now.
func (j *Job) ClaimExpired(now time.Time, lease time.Duration) bool {
	if j.ClaimedAt == nil {
		return true
	}
	return !j.ClaimedAt.Add(lease).After(now)
}

// Claimable reports whether a worker may take the job at now.
func (j *Job) Claimable(now time.Time, lease time.Duration) bool {
	return j.Status == JobStatusQueued && j.ClaimExpired(now, lease)
}

// ArtifactRef is a time-bounded reference to a stored artifact.
type ArtifactRef struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}
