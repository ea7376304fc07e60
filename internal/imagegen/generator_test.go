package imagegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

type stubBackend struct {
	target string
	input  domain.GenerationInput
	calls  int
	urls   []string
	err    error
}

func (s *stubBackend) Generate(ctx context.Context, target string, input domain.GenerationInput) ([]string, error) {
	s.calls++
	s.target = target
	s.input = input
	return s.urls, s.err
}

func newTestGenerator(t *testing.T, backend *stubBackend) *Generator {
	t.Helper()
	g, err := NewGenerator(Options{Backend: backend, Logger: infra.NewNopLogger()})
	require.NoError(t, err)
	return g
}

func TestGenerateResolvesModelAndAspect(t *testing.T) {
	backend := &stubBackend{urls: []string{"https://img/1.png", " ", "https://img/2.png"}}
	g := newTestGenerator(t, backend)

	urls, err := g.Generate(context.Background(), Request{Prompt: "  a red fox ", Model: "flux-schnell", AspectRatio: "1024x768"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1.png", "https://img/2.png"}, urls)
	assert.Equal(t, "black-forest-labs/flux-schnell", backend.target)
	assert.Equal(t, domain.GenerationInput{Prompt: "a red fox", Width: 1024, Height: 768}, backend.input)
}

func TestGenerateValidation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"missing prompt", Request{Model: "sdxl", AspectRatio: "1x1"}, domain.ErrValidation},
		{"missing model", Request{Prompt: "p", AspectRatio: "1x1"}, domain.ErrValidation},
		{"missing aspect", Request{Prompt: "p", Model: "sdxl"}, domain.ErrValidation},
		{"bad aspect", Request{Prompt: "p", Model: "sdxl", AspectRatio: "16:9"}, domain.ErrInvalidAspect},
		{"zero aspect", Request{Prompt: "p", Model: "sdxl", AspectRatio: "0x512"}, domain.ErrInvalidAspect},
		{"unknown model", Request{Prompt: "p", Model: "dalle", AspectRatio: "512x512"}, domain.ErrUnknownModel},
		{"long prompt", Request{Prompt: strings.Repeat("é", domain.MaxPromptLength+1), Model: "sdxl", AspectRatio: "1x1"}, domain.ErrPromptTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &stubBackend{urls: []string{"https://img/1.png"}}
			_, err := newTestGenerator(t, backend).Generate(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, backend.calls)
		})
	}
}

func TestGenerateBackendFailures(t *testing.T) {
	_, err := newTestGenerator(t, &stubBackend{err: errors.New("boom")}).
		Generate(context.Background(), Request{Prompt: "p", Model: "flux-dev", AspectRatio: "512x512"})
	require.ErrorIs(t, err, domain.ErrGeneration)

	_, err = newTestGenerator(t, &stubBackend{}).
		Generate(context.Background(), Request{Prompt: "p", Model: "flux-dev", AspectRatio: "512x512"})
	require.ErrorIs(t, err, domain.ErrGeneration)
}

func TestParseAspectRatio(t *testing.T) {
	w, h, err := ParseAspectRatio(" 1920X1080 ")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	for _, bad := range []string{"", "x", "10x", "ax10", "-1x10", "10x10x10"} {
		_, _, err := ParseAspectRatio(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidAspect, bad)
	}
}
