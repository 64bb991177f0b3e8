// Package gemini provides an ImageGenerator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mhpenta/imagine"
	"google.golang.org/genai"
)

// Model name constants - the actual API model names.
const (
	// APIModelNanoBanana1 is the actual API name for Gemini 2.5 Flash Image
	APIModelNanoBanana1 = "gemini-2.5-flash-image"

	// APIModelNanoBanana2 is the actual API name for Gemini 3 Pro Image
	APIModelNanoBanana2 = "gemini-3-pro-image-preview"
)

// GeminiGenerator implements ImageGenerator using Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

var _ imagine.ImageGenerator = (*GeminiGenerator)(nil)

// New creates a new GeminiGenerator from a ProviderConfig.
func New(ctx context.Context, config *imagine.ProviderConfig) (*GeminiGenerator, error) {
	if config == nil {
		config = &imagine.ProviderConfig{}
	}

	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	}

	// If APIKey is empty, the SDK will try GOOGLE_API_KEY or GEMINI_API_KEY env vars
	if config.APIKey != "" {
		clientCfg.APIKey = config.APIKey
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
	}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	return New(ctx, &imagine.ProviderConfig{
		Provider: imagine.ProviderGeminiAPI,
		APIKey:   apiKey,
	})
}

// Generate creates an image from a text prompt. The prompt is sent as the
// only content part and the aspect ratio as the image config hint.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, config *imagine.GenerateConfig) (*imagine.GenerateResult, error) {
	if config == nil {
		config = imagine.DefaultConfig()
	}

	modelName := g.resolveModel(config)

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, modelName, contents, buildGenerateContentConfig(config))
	if err != nil {
		if rlErr := checkRateLimitError(err, modelName); rlErr != nil {
			return nil, rlErr
		}
		return nil, err
	}

	return parseResult(result)
}

// Models returns the model definitions supported by this provider.
// The first model (NanoBanana1) is the default.
func (g *GeminiGenerator) Models() []imagine.ModelInfo {
	return []imagine.ModelInfo{
		NanoBanana1Info,
		NanoBanana2Info,
	}
}

// Close releases any resources held by the generator.
func (g *GeminiGenerator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// resolveModel determines which API model name to use.
func (g *GeminiGenerator) resolveModel(config *imagine.GenerateConfig) string {
	if config != nil && config.Model != imagine.ModelDefault {
		return string(config.Model)
	}
	return g.Models()[0].APIModelName
}

// buildGenerateContentConfig converts our config to Gemini's GenerateContentConfig format.
func buildGenerateContentConfig(config *imagine.GenerateConfig) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	if config.AspectRatio != "" {
		genConfig.ImageConfig = &genai.ImageConfig{
			AspectRatio: config.AspectRatio.String(),
		}
	}

	return genConfig
}

// parseResult extracts the first inline image part of the response.
// Text parts seen before it are collected into Text.
func parseResult(result *genai.GenerateContentResponse) (*imagine.GenerateResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, imagine.ErrNoImageData
	}

	genResult := &imagine.GenerateResult{}

	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}

			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				genResult.Image = &imagine.Image{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				}
				break
			}

			genResult.Text += part.Text
		}

		if genResult.Image != nil {
			break
		}
	}

	if genResult.Image == nil {
		return nil, imagine.ErrNoImageData
	}

	if result.UsageMetadata != nil {
		genResult.UsageMetadata = &imagine.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return genResult, nil
}

// checkRateLimitError wraps Gemini 429 / RESOURCE_EXHAUSTED errors in a RateLimitError.
// Returns nil for any other error.
func checkRateLimitError(err error, model string) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return nil
	}

	return &imagine.RateLimitError{
		RetryAfter: 60 * time.Second, // API doesn't reliably provide Retry-After
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}
