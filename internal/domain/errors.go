package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrPromptTooLong = errors.New("prompt too long")

	// Failure kinds raised while processing a job. The worker collapses all of
	// them into a failed status.
	ErrUnknownModel   = errors.New("unknown model")
	ErrGeneration     = errors.New("generation failed")
	ErrArtifactFetch  = errors.New("artifact fetch failed")
	ErrArtifactStore  = errors.New("artifact store failed")
	ErrStatusUpdate   = errors.New("status update failed")
	ErrClaimConflict  = errors.New("job already claimed")
	ErrInvalidAspect  = errors.New("invalid aspect ratio")
	ErrBackendRefused = errors.New("backend unavailable")
)

// ErrorKind names the failure category of err for logging.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownModel):
		return "routing"
	case errors.Is(err, ErrGeneration), errors.Is(err, ErrBackendRefused):
		return "generation"
	case errors.Is(err, ErrArtifactFetch):
		return "transport"
	case errors.Is(err, ErrArtifactStore), errors.Is(err, ErrStatusUpdate):
		return "persistence"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAspect), errors.Is(err, ErrPromptTooLong):
		return "validation"
	default:
		return "unknown"
	}
}
