package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"mediagen/internal/domain"
)

type videoGenerateRequest struct {
	UserID   string `json:"userId"`
	ModelID  string `json:"modelId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Duration int    `json:"duration"`
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

type videoGenerateResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// GenerateVideo queues an image-to-video job. The model id is not checked
// here; the worker fails jobs whose model cannot be routed.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.ModelID = strings.TrimSpace(req.ModelID)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.UserID == "" || req.ModelID == "" || req.ImageURL == "" ||
		req.Width == 0 || req.Height == 0 || req.Duration == 0 {
		a.error(w, http.StatusBadRequest, "Missing fields")
		return
	}
	if msg := validateVideoRequest(&req); msg != "" {
		a.error(w, http.StatusBadRequest, msg)
		return
	}

	job := domain.NewQueuedJob(a.id(), req.UserID, req.ModelID, domain.JobParameters{
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Width:    req.Width,
		Height:   req.Height,
		Duration: req.Duration,
		Motion:   domain.DefaultMotion,
	}, a.clock())
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("intake: failed to queue video job")
		a.error(w, http.StatusInternalServerError, "Failed to generate video")
		return
	}
	a.Logger.Info().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Str("model", job.ModelID).
		Msg("intake: video job queued")
	a.json(w, http.StatusOK, videoGenerateResponse{Success: true, JobID: job.ID})
}

// validateVideoRequest normalizes the prompt and returns a client message
// when the request cannot be queued.
func validateVideoRequest(req *videoGenerateRequest) string {
	if req.Width < 0 || req.Height < 0 || req.Duration < 0 {
		return "Invalid fields"
	}
	req.Prompt = domain.NormalizePrompt(req.Prompt)
	if len([]rune(req.Prompt)) > domain.MaxPromptLength {
		return "Prompt too long"
	}
	return ""
}
