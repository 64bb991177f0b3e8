// Package openai provides an ImageGenerator implementation backed by the
// OpenAI images API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mhpenta/imagine"
)

// ModelDallE3 is the public model name served by this provider.
const ModelDallE3 imagine.Model = "dall-e-3"

// DallE3Info is the model info for DALL·E 3.
var DallE3Info = imagine.ModelInfo{
	Name:                  string(ModelDallE3),
	Provider:              imagine.ProviderOpenAI,
	APIModelName:          goopenai.CreateImageModelDallE3,
	SupportedAspectRatios: imagine.SupportedAspectRatios,

	RateLimits: imagine.RateLimits{
		RequestsPerMinute: 7, // Tier 1 images per minute
	},
}

// OpenAIGenerator implements ImageGenerator using the OpenAI images API.
type OpenAIGenerator struct {
	client *goopenai.Client
}

var _ imagine.ImageGenerator = (*OpenAIGenerator)(nil)

// New creates a generator from a ProviderConfig.
func New(config *imagine.ProviderConfig) (*OpenAIGenerator, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", imagine.ErrProviderNotConfigured)
	}

	clientCfg := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientCfg.BaseURL = config.BaseURL
	}

	return &OpenAIGenerator{
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

// NewWithAPIKey creates a generator with an API key.
func NewWithAPIKey(apiKey string) (*OpenAIGenerator, error) {
	return New(&imagine.ProviderConfig{
		Provider: imagine.ProviderOpenAI,
		APIKey:   apiKey,
	})
}

// Generate creates an image from a text prompt, requesting base64 output at
// the size closest to the configured aspect ratio.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, config *imagine.GenerateConfig) (*imagine.GenerateResult, error) {
	if config == nil {
		config = imagine.DefaultConfig()
	}

	model := DallE3Info.APIModelName
	if config.Model != imagine.ModelDefault {
		model = string(config.Model)
	}

	req := goopenai.ImageRequest{
		Prompt:         prompt,
		Model:          model,
		N:              1,
		Size:           sizeForAspectRatio(config.AspectRatio),
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	}

	resp, err := g.client.CreateImage(ctx, req)
	if err != nil {
		if rlErr := checkRateLimitError(err, model); rlErr != nil {
			return nil, rlErr
		}
		return nil, err
	}

	for _, item := range resp.Data {
		if item.B64JSON == "" {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decoding image data: %w", err)
		}

		return &imagine.GenerateResult{
			Image: &imagine.Image{Data: data, MIMEType: imagine.MIMETypePNG},
			Text:  item.RevisedPrompt,
		}, nil
	}

	return nil, imagine.ErrNoImageData
}

// Models returns the model definitions supported by this provider.
func (g *OpenAIGenerator) Models() []imagine.ModelInfo {
	return []imagine.ModelInfo{DallE3Info}
}

// Close releases any resources held by the generator.
func (g *OpenAIGenerator) Close() error {
	return nil
}

// sizeForAspectRatio maps an aspect ratio to the nearest size DALL·E 3 produces.
func sizeForAspectRatio(ratio imagine.AspectRatio) string {
	switch ratio {
	case imagine.AspectRatio3x4, imagine.AspectRatio9x16:
		return goopenai.CreateImageSize1024x1792
	case imagine.AspectRatio4x3, imagine.AspectRatio16x9:
		return goopenai.CreateImageSize1792x1024
	default:
		return goopenai.CreateImageSize1024x1024
	}
}

// checkRateLimitError wraps HTTP 429 responses in a RateLimitError.
// Returns nil for any other error.
func checkRateLimitError(err error, model string) error {
	status := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status != http.StatusTooManyRequests {
		return nil
	}

	return &imagine.RateLimitError{
		RetryAfter: 60 * time.Second,
		LimitType:  "requests",
		Model:      model,
		Err:        err,
	}
}
