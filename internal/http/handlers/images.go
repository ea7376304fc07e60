package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mediagen/internal/domain"
	"mediagen/internal/imagegen"
)

type imageGenerateRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspectRatio"`
}

type imageGenerateResponse struct {
	Images []string `json:"images"`
}

// GenerateImage runs a text-to-image generation and returns the image URLs.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	if a.Images == nil {
		a.error(w, http.StatusServiceUnavailable, "Image generation unavailable")
		return
	}
	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	images, err := a.Images.Generate(r.Context(), imagegen.Request{
		Prompt:      req.Prompt,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
	})
	switch {
	case err == nil:
		a.json(w, http.StatusOK, imageGenerateResponse{Images: images})
	case errors.Is(err, domain.ErrPromptTooLong):
		a.error(w, http.StatusBadRequest, "Prompt too long")
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "Missing fields")
	case errors.Is(err, domain.ErrInvalidAspect):
		a.error(w, http.StatusBadRequest, "Invalid aspect ratio")
	case errors.Is(err, domain.ErrUnknownModel):
		a.error(w, http.StatusBadRequest, "Unsupported model")
	case errors.Is(err, domain.ErrGeneration), errors.Is(err, domain.ErrBackendRefused):
		a.error(w, http.StatusBadGateway, "Image generation failed")
	default:
		a.Logger.Error().Err(err).Msg("images: unexpected error")
		a.error(w, http.StatusInternalServerError, "Image generation failed")
	}
}
