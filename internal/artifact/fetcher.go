// Package artifact downloads generated artifacts from backend URLs.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediagen/internal/domain"
)

// DefaultContentType is assumed when the origin omits a Content-Type header.
const DefaultContentType = "video/mp4"

// Fetcher retrieves artifact bytes over HTTP.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// Options configures a Fetcher.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxBytes caps the downloaded body; zero means 512 MiB.
	MaxBytes int64
}

// NewFetcher builds a Fetcher with defaults applied.
func NewFetcher(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 512 << 20
	}
	return &Fetcher{httpClient: client, maxBytes: maxBytes}
}

// Fetch downloads rawURL and returns its body and content type. Any network
// error or non-2xx response is reported as domain.ErrArtifactFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, "", fmt.Errorf("%w: invalid url %q", domain.ErrArtifactFetch, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: build request: %v", domain.ErrArtifactFetch, err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrArtifactFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: status %d", domain.ErrArtifactFetch, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", domain.ErrArtifactFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: body exceeds %d bytes", domain.ErrArtifactFetch, f.maxBytes)
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = DefaultContentType
	}
	return data, contentType, nil
}
