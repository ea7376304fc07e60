package domain

import "context"

// GenerationInput is the typed payload sent to a generation backend.
type GenerationInput struct {
	Prompt   string
	Image    string
	Width    int
	Height   int
	Duration int
	Motion   string
}

// GenerationBackend runs a model and returns the produced artifact URLs.
type GenerationBackend interface {
	Generate(ctx context.Context, target string, input GenerationInput) ([]string, error)
}

// GenerationInputFor maps stored job parameters onto a backend payload.
func GenerationInputFor(p JobParameters) GenerationInput {
	motion := p.Motion
	if motion == "" {
		motion = DefaultMotion
	}
	return GenerationInput{
		Prompt:   p.Prompt,
		Image:    p.ImageURL,
		Width:    p.Width,
		Height:   p.Height,
		Duration: p.Duration,
		Motion:   motion,
	}
}
