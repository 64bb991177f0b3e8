package imagine

import "slices"

// RateLimits defines rate limiting parameters for a model.
type RateLimits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// ModelInfo contains complete metadata for a model.
type ModelInfo struct {
	Name         string   // Public model name (e.g., "nano-banana-1")
	Provider     Provider // Which provider serves this model
	APIModelName string   // Actual API name (e.g., "gemini-2.5-flash-image")

	SupportedAspectRatios []AspectRatio

	RateLimits RateLimits
}

// SupportsAspectRatio reports whether the model accepts ratio.
// An empty SupportedAspectRatios list accepts every supported ratio.
func (i *ModelInfo) SupportsAspectRatio(ratio AspectRatio) bool {
	if len(i.SupportedAspectRatios) == 0 {
		return ratio.Valid()
	}
	return slices.Contains(i.SupportedAspectRatios, ratio)
}
