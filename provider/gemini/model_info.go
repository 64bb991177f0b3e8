package gemini

import "github.com/mhpenta/imagine"

// NanoBanana1Info is the model info for Gemini 2.5 Flash Image (nano-banana-1),
// the model the image studio has always generated with.
var NanoBanana1Info = imagine.ModelInfo{
	Name:                  string(imagine.ModelNanoBanana1),
	Provider:              imagine.ProviderGeminiAPI,
	APIModelName:          APIModelNanoBanana1,
	SupportedAspectRatios: imagine.SupportedAspectRatios,

	RateLimits: imagine.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 500, // ~500 RPM for Tier 1
	},
}

// NanoBanana2Info is the model info for Gemini 3 Pro Image (nano-banana-2).
var NanoBanana2Info = imagine.ModelInfo{
	Name:                  string(imagine.ModelNanoBanana2),
	Provider:              imagine.ProviderGeminiAPI,
	APIModelName:          APIModelNanoBanana2,
	SupportedAspectRatios: imagine.SupportedAspectRatios,

	RateLimits: imagine.RateLimits{
		TokensPerMinute:   4000000,
		RequestsPerMinute: 360,
	},
}
