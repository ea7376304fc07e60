// Package replicate implements domain.GenerationBackend against a
// Replicate-style predictions API.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

// Options configures the predictions client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
	// WaitSeconds is sent in the Prefer header to hold the create call open.
	WaitSeconds int
}

// Client runs predictions and waits for them to finish.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
	waitSeconds  int
	breaker      *gobreaker.CircuitBreaker
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt   string `json:"prompt,omitempty"`
	Image    string `json:"image,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Motion   string `json:"motion,omitempty"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

type errorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	waitSeconds := opts.WaitSeconds
	if waitSeconds <= 0 {
		waitSeconds = 60
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "replicate",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("replicate: circuit breaker state changed")
		},
		// Only transport and server faults count against the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errUnavailable)
		},
	})
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
		waitSeconds:  waitSeconds,
		breaker:      breaker,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

var errUnavailable = errors.New("replicate: backend unavailable")

// Generate runs target with input and returns every output URL.
func (c *Client) Generate(ctx context.Context, target string, input domain.GenerationInput) ([]string, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, ErrMissingAPIToken)
	}
	owner, name, ok := strings.Cut(strings.TrimSpace(target), "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("%w: invalid target %q", domain.ErrGeneration, target)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.run(ctx, owner, name, input)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrBackendRefused, err)
		}
		return nil, err
	}
	return out.([]string), nil
}

func (c *Client) run(ctx context.Context, owner, name string, input domain.GenerationInput) ([]string, error) {
	payload := predictionRequest{Input: predictionInput{
		Prompt:   strings.TrimSpace(input.Prompt),
		Image:    strings.TrimSpace(input.Image),
		Width:    input.Width,
		Height:   input.Height,
		Duration: input.Duration,
		Motion:   input.Motion,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s/%s/predictions", c.baseURL, owner, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", fmt.Sprintf("wait=%d", c.waitSeconds))

	pred, err := c.do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", owner+"/"+name).
		Str("prediction_id", pred.ID).
		Str("status", pred.Status).
		Msg("replicate: prediction created")

	for !terminal(pred.Status) {
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("%w: prediction %s has no status url", domain.ErrGeneration, pred.ID)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, ctx.Err())
		case <-time.After(c.pollInterval):
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("replicate: build poll request: %w", err)
		}
		if pred, err = c.do(req); err != nil {
			return nil, err
		}
	}

	switch pred.Status {
	case statusSucceeded:
		urls := outputURLs(pred.Output)
		c.logger.Debug().
			Str("prediction_id", pred.ID).
			Int("outputs", len(urls)).
			Msg("replicate: prediction succeeded")
		return urls, nil
	case statusCanceled:
		return nil, fmt.Errorf("%w: prediction %s canceled", domain.ErrGeneration, pred.ID)
	default:
		return nil, fmt.Errorf("%w: prediction %s failed: %s", domain.ErrGeneration, pred.ID, predictionError(pred.Error))
	}
}

func (c *Client) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrGeneration, errUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGeneration, err)
	}
	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w: status %d: %s", domain.ErrGeneration, errUnavailable, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGeneration, resp.StatusCode, msg)
	}
	var pred prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrGeneration, err)
	}
	return &pred, nil
}

func terminal(status string) bool {
	switch status {
	case statusSucceeded, statusFailed, statusCanceled:
		return true
	default:
		return false
	}
}

// outputURLs accepts a single URL or a list of URLs.
func outputURLs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			return []string{s}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil
	}
	urls := make([]string, 0, len(many))
	for _, u := range many {
		if s := strings.TrimSpace(u); s != "" {
			urls = append(urls, s)
		}
	}
	return urls
}

func predictionError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

var _ domain.GenerationBackend = (*Client)(nil)
