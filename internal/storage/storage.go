// Package storage persists generated artifacts and hands out time-bounded
// references to them.
package storage

import (
	"context"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediagen/internal/domain"
)

// DefaultReferenceTTL is how long a stored artifact reference stays valid.
const DefaultReferenceTTL = 7 * 24 * time.Hour

// ArtifactStore persists artifact bytes and returns a retrievable reference.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte, ttl time.Duration) (domain.ArtifactRef, error)
}

// NewArtifactKey returns a fresh unique key under prefix with an extension
// matching contentType.
func NewArtifactKey(prefix, contentType string) string {
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ExtensionForMIME(contentType))
}

// ExtensionForMIME maps common artifact content types to file extensions.
func ExtensionForMIME(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
