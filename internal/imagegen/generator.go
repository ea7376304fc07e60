// Package imagegen runs synchronous text-to-image generation.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

const defaultTimeout = 2 * time.Minute

// Request is a text-to-image generation request.
type Request struct {
	Prompt      string
	Model       string
	AspectRatio string
}

// Options wires a Generator. Backend is required.
type Options struct {
	Backend domain.GenerationBackend
	Router  domain.ModelRouter
	Logger  infra.Logger
	Timeout time.Duration
}

// Generator resolves image models and calls the backend. No job is persisted.
type Generator struct {
	backend domain.GenerationBackend
	router  domain.ModelRouter
	logger  infra.Logger
	timeout time.Duration
}

// NewGenerator applies defaults. The router defaults to domain.ImageRouter.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Backend == nil {
		return nil, errors.New("imagegen: backend is required")
	}
	g := &Generator{
		backend: opts.Backend,
		router:  opts.Router,
		logger:  opts.Logger,
		timeout: opts.Timeout,
	}
	if g.router == nil {
		g.router = domain.ImageRouter{}
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	return g, nil
}

// ParseAspectRatio parses "<width>x<height>" into positive dimensions.
func ParseAspectRatio(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidAspect, s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(ws))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidAspect, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hs))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidAspect, s)
	}
	return w, h, nil
}

// Generate validates req and returns the produced image URLs.
func (g *Generator) Generate(ctx context.Context, req Request) ([]string, error) {
	prompt := domain.NormalizePrompt(req.Prompt)
	model := strings.TrimSpace(req.Model)
	if prompt == "" || model == "" || strings.TrimSpace(req.AspectRatio) == "" {
		return nil, fmt.Errorf("%w: prompt, model and aspectRatio are required", domain.ErrValidation)
	}
	if len([]rune(prompt)) > domain.MaxPromptLength {
		return nil, fmt.Errorf("%w: limit is %d characters", domain.ErrPromptTooLong, domain.MaxPromptLength)
	}
	width, height, err := ParseAspectRatio(req.AspectRatio)
	if err != nil {
		return nil, err
	}
	target, err := g.router.Resolve(model)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	start := time.Now()
	urls, err := g.backend.Generate(callCtx, target, domain.GenerationInput{
		Prompt: prompt,
		Width:  width,
		Height: height,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) && !errors.Is(err, domain.ErrBackendRefused) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		g.logger.Error().Err(err).Str("model", model).Msg("imagegen: generation failed")
		return nil, err
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no images returned", domain.ErrGeneration)
	}
	g.logger.Info().
		Str("model", model).
		Int("images", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("imagegen: generated images")
	return out, nil
}
