package domain

import (
	"fmt"
	"strings"
)

// ModelRouter maps a caller-facing model identifier to a backend target.
type ModelRouter interface {
	Resolve(modelID string) (string, error)
}

// VideoModel is a supported image-to-video model.
type VideoModel string

const (
	VideoModelPixverseV45      VideoModel = "pixverse-v4.5"
	VideoModelKlingV16Standard VideoModel = "kling-v1.6-standard"
	VideoModelKlingV20         VideoModel = "kling-v2.0"
)

// VideoModels lists every supported video model.
var VideoModels = []VideoModel{
	VideoModelPixverseV45,
	VideoModelKlingV16Standard,
	VideoModelKlingV20,
}

// Target returns the backend model path for m.
func (m VideoModel) Target() (string, bool) {
	switch m {
	case VideoModelPixverseV45:
		return "pixverse/pixverse-v4.5", true
	case VideoModelKlingV16Standard:
		return "kwaivgi/kling-v1.6-standard", true
	case VideoModelKlingV20:
		return "kwaivgi/kling-v2.0", true
	default:
		return "", false
	}
}

// ParseVideoModel converts a caller-facing identifier into a VideoModel.
func ParseVideoModel(id string) (VideoModel, error) {
	m := VideoModel(strings.TrimSpace(id))
	if _, ok := m.Target(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// ImageModel is a supported text-to-image model.
type ImageModel string

const (
	ImageModelFluxSchnell ImageModel = "flux-schnell"
	ImageModelFluxDev     ImageModel = "flux-dev"
	ImageModelSDXL        ImageModel = "sdxl"
)

// ImageModels lists every supported image model.
var ImageModels = []ImageModel{
	ImageModelFluxSchnell,
	ImageModelFluxDev,
	ImageModelSDXL,
}

// Target returns the backend model path for m.
func (m ImageModel) Target() (string, bool) {
	switch m {
	case ImageModelFluxSchnell:
		return "black-forest-labs/flux-schnell", true
	case ImageModelFluxDev:
		return "black-forest-labs/flux-dev", true
	case ImageModelSDXL:
		return "stability-ai/sdxl", true
	default:
		return "", false
	}
}

// ParseImageModel converts a caller-facing identifier into an ImageModel.
func ParseImageModel(id string) (ImageModel, error) {
	m := ImageModel(strings.TrimSpace(id))
	if _, ok := m.Target(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// VideoRouter resolves video model identifiers.
type VideoRouter struct{}

func (VideoRouter) Resolve(modelID string) (string, error) {
	m, err := ParseVideoModel(modelID)
	if err != nil {
		return "", err
	}
	target, _ := m.Target()
	return target, nil
}

// ImageRouter resolves image model identifiers.
type ImageRouter struct{}

func (ImageRouter) Resolve(modelID string) (string, error) {
	m, err := ParseImageModel(modelID)
	if err != nil {
		return "", err
	}
	target, _ := m.Target()
	return target, nil
}

var (
	_ ModelRouter = VideoRouter{}
	_ ModelRouter = ImageRouter{}
)
