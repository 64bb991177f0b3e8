package imagine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoImageData is returned when a well-formed provider response carries
	// no inline image part.
	ErrNoImageData = errors.New("no image data found in the response parts")

	// ErrGenerationInProgress is returned when a generation is requested while
	// another one is still outstanding.
	ErrGenerationInProgress = errors.New("a generation is already in progress")

	// ErrUnsupportedAspectRatio is returned for ratios outside SupportedAspectRatios.
	ErrUnsupportedAspectRatio = errors.New("unsupported aspect ratio")

	// ErrDuplicateID is returned when appending an image whose id is already stored.
	ErrDuplicateID = errors.New("image id already exists in history")

	// ErrImageNotFound is returned when an id is not present in history.
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidDataURI is returned when an image reference cannot be decoded.
	ErrInvalidDataURI = errors.New("invalid data URI")

	// ErrStorageNotConfigured is returned when an export is attempted
	// without a storage backend.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// RateLimitError is returned when a rate limit is hit.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}
