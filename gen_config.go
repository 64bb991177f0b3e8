package imagine

import (
	"fmt"
	"time"
)

// Model represents a specific image generation model.
type Model string

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio16x9 AspectRatio = "16:9"

	DefaultAspectRatio = AspectRatio1x1
)

// SupportedAspectRatios lists every aspect ratio a request may carry,
// in the order the selector presents them.
var SupportedAspectRatios = []AspectRatio{
	AspectRatio1x1,
	AspectRatio4x3,
	AspectRatio3x4,
	AspectRatio16x9,
	AspectRatio9x16,
}

// ParseAspectRatio converts a user supplied string to an AspectRatio.
func ParseAspectRatio(s string) (AspectRatio, error) {
	a := AspectRatio(s)
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAspectRatio, s)
	}
	return a, nil
}

// Valid reports whether a is one of SupportedAspectRatios.
func (a AspectRatio) Valid() bool {
	for _, s := range SupportedAspectRatios {
		if a == s {
			return true
		}
	}
	return false
}

// String returns the string representation for API calls.
func (a AspectRatio) String() string {
	return string(a)
}

// GenerateConfig holds configuration options for image generation.
type GenerateConfig struct {
	// Model to use for generation (if empty, uses the client's default)
	Model Model

	// AspectRatio of the output image (if empty, DefaultAspectRatio)
	AspectRatio AspectRatio

	// WaitOnRateLimit, if true, causes the Client to wait when rate limited.
	// If false, a RateLimitError is returned immediately.
	WaitOnRateLimit bool

	// MaxWaitDuration is the maximum time to wait when WaitOnRateLimit is true.
	// Zero means no limit.
	MaxWaitDuration time.Duration
}

// WithModel returns a copy of the config with the specified model.
func (c *GenerateConfig) WithModel(model Model) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{Model: model, AspectRatio: DefaultAspectRatio}
	}
	cX := *c
	cX.Model = model
	return &cX
}

// WithAspectRatio returns a copy of the config with the specified aspect ratio.
func (c *GenerateConfig) WithAspectRatio(ratio AspectRatio) *GenerateConfig {
	if c == nil {
		return &GenerateConfig{AspectRatio: ratio}
	}
	cX := *c
	cX.AspectRatio = ratio
	return &cX
}

// DefaultConfig returns a GenerateConfig with sensible defaults.
func DefaultConfig() *GenerateConfig {
	return &GenerateConfig{
		Model:       ModelDefault,
		AspectRatio: DefaultAspectRatio,
	}
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}
