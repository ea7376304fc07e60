package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"mediagen/internal/domain"
)

// GCSOptions configures a Google Cloud Storage artifact store.
type GCSOptions struct {
	Bucket          string
	CredentialsFile string
}

// GCSStore writes artifacts to a GCS bucket and returns V4 signed URLs.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	now    func() time.Time
}

// NewGCSStore creates a GCS client. Without a credentials file the default
// application credentials are used; they must be able to sign URLs.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(opts.Bucket), now: time.Now}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte, ttl time.Duration) (domain.ArtifactRef, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return domain.ArtifactRef{}, err
	}
	w := s.bucket.Object(cleanKey).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return domain.ArtifactRef{}, fmt.Errorf("storage: write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("storage: close gcs object: %w", err)
	}

	expires := s.now().Add(ttl)
	signed, err := s.bucket.SignedURL(cleanKey, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expires,
	})
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("storage: sign gcs url: %w", err)
	}
	return domain.ArtifactRef{Key: cleanKey, URL: signed, ExpiresAt: expires}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ArtifactStore = (*GCSStore)(nil)
