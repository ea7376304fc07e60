package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediagen/internal/domain"
)

type jobView struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	ModelID         string     `json:"modelId"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Result          string     `json:"result,omitempty"`
	ResultExpiresAt *time.Time `json:"resultExpiresAt,omitempty"`
}

// JobStatus reports the caller-visible state of a job.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		a.error(w, http.StatusNotFound, "Job not found")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "Job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("jobs: lookup failed")
		a.error(w, http.StatusInternalServerError, "Failed to load job")
		return
	}
	view := jobView{
		ID:        job.ID,
		Status:    string(job.Status),
		ModelID:   job.ModelID,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == domain.JobStatusCompleted {
		view.Result = job.Result
		view.ResultExpiresAt = job.ResultExpiresAt
	}
	a.json(w, http.StatusOK, view)
}
