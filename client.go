package imagine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mhpenta/imagine/ratelimiter"
)

const (
	ModelNanoBanana1 Model = "nano-banana-1" // Gemini 2.5 Flash Image
	ModelNanoBanana2 Model = "nano-banana-2" // Gemini 3 Pro Image

	// ModelDefault resolves to the client's default model.
	ModelDefault Model = ""
)

var (
	// ErrModelNotRegistered is returned when a model has no registered provider.
	ErrModelNotRegistered = errors.New("model not registered")

	// ErrProviderNotConfigured is returned when a provider lacks required config.
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// Provider represents a model provider/backend.
type Provider string

const (
	ProviderGeminiAPI Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
)

// ProviderConfig configures a specific provider.
type ProviderConfig struct {
	// Provider type
	Provider Provider

	// APIKey for authentication
	APIKey string

	// BaseURL for custom endpoints (optional)
	BaseURL string
}

// ModelMapping maps a model identifier to its provider and actual model name.
type ModelMapping struct {
	Provider        Provider
	ActualModelName string
}

// Client turns a prompt and a GenerateConfig into a displayable image
// reference, routing each request to the provider registered for its model.
//
// Only one generation may be outstanding per Client. A call made while
// another is in flight fails fast with ErrGenerationInProgress.
type Client struct {
	modelMappings map[Model]ModelMapping
	providers     map[Provider]ImageGenerator
	modelInfo     map[Model]*ModelInfo
	rateLimiters  map[Model]ratelimiter.Limiter

	// Default model to use when config.Model is empty
	defaultModel Model

	logger         *slog.Logger
	tokenEstimator TokenEstimator

	inFlight atomic.Bool

	mu sync.RWMutex
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDefaultModel sets the default model used when config.Model is empty.
func WithDefaultModel(model Model) ClientOption {
	return func(c *Client) {
		if model != ModelDefault {
			c.defaultModel = model
		}
	}
}

// WithProvider registers an additional provider and all of its models.
func WithProvider(gen ImageGenerator) ClientOption {
	return func(c *Client) {
		c.AddProvider(gen)
	}
}

// WithRateLimiter overrides the limiter created from a model's RateLimits.
func WithRateLimiter(model Model, limiter ratelimiter.Limiter) ClientOption {
	return func(c *Client) {
		c.SetRateLimiter(model, limiter)
	}
}

// NewClient creates a Client with the given provider and options.
// The first model of defaultProvider becomes the default model.
//
// Example:
//
//	gen, err := gemini.NewWithAPIKey(ctx, apiKey)
//	if err != nil {
//	    return err
//	}
//	client := imagine.NewClient(gen, imagine.WithLogger(slog.Default()))
func NewClient(defaultProvider ImageGenerator, opts ...ClientOption) *Client {
	c := &Client{
		logger:         slog.Default(),
		modelMappings:  make(map[Model]ModelMapping),
		providers:      make(map[Provider]ImageGenerator),
		rateLimiters:   make(map[Model]ratelimiter.Limiter),
		modelInfo:      make(map[Model]*ModelInfo),
		tokenEstimator: NewSimpleTokenEstimator(),
	}

	if defaultProvider != nil {
		c.AddProvider(defaultProvider)
		if models := defaultProvider.Models(); len(models) > 0 {
			c.defaultModel = Model(models[0].Name)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AddProvider registers every model of gen.
func (c *Client) AddProvider(gen ImageGenerator) *Client {
	models := gen.Models()
	for i := range models {
		info := &models[i]

		c.mu.Lock()
		c.providers[info.Provider] = gen
		c.mu.Unlock()

		c.RegisterModel(Model(info.Name),
			ModelMapping{
				Provider:        info.Provider,
				ActualModelName: info.APIModelName,
			},
			info)
	}
	return c
}

// RegisterModel registers a model with full info (including rate limits).
// Uses the default in-memory rate limiter. Use SetRateLimiter to override.
func (c *Client) RegisterModel(model Model, mapping ModelMapping, info *ModelInfo) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modelMappings[model] = mapping
	c.modelInfo[model] = info

	if info.RateLimits.TokensPerMinute > 0 || info.RateLimits.RequestsPerMinute > 0 {
		c.rateLimiters[model] = ratelimiter.New(
			info.RateLimits.TokensPerMinute,
			info.RateLimits.RequestsPerMinute,
		)
	}

	return c
}

// SetRateLimiter sets a custom rate limiter for a model.
func (c *Client) SetRateLimiter(model Model, limiter ratelimiter.Limiter) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rateLimiters[model] = limiter
	return c
}

// DefaultModel returns the model used when config.Model is empty.
func (c *Client) DefaultModel() Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultModel
}

// Busy reports whether a generation is currently outstanding.
func (c *Client) Busy() bool {
	return c.inFlight.Load()
}

// Generate creates an image from prompt and returns it as a PNG data URI.
func (c *Client) Generate(ctx context.Context, prompt string, config *GenerateConfig) (string, error) {
	result, err := c.GenerateResult(ctx, prompt, config)
	if err != nil {
		return "", err
	}
	return result.Image.DataURI(), nil
}

// GenerateResult creates an image from prompt and returns the structured result.
// The returned result always carries a non-empty Image.
func (c *Client) GenerateResult(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrGenerationInProgress
	}
	defer c.inFlight.Store(false)

	if config == nil {
		config = DefaultConfig()
	}
	if config.AspectRatio == "" {
		config = config.WithAspectRatio(DefaultAspectRatio)
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	model := c.resolveModel(config)
	start := time.Now()

	c.logger.Debug("starting image generation",
		"model", string(model),
		"aspect_ratio", config.AspectRatio.String(),
		"prompt_length", len(prompt),
	)

	if err := c.checkRateLimit(ctx, model, config, prompt); err != nil {
		c.logger.Warn("rate limit hit",
			"model", string(model),
			"error", err.Error(),
		)
		return nil, err
	}

	gen, actualConfig, err := c.getGeneratorForConfig(config)
	if err != nil {
		c.logger.Error("failed to get generator",
			"model", string(model),
			"error", err.Error(),
		)
		return nil, err
	}

	result, err := gen.Generate(ctx, prompt, actualConfig)
	duration := time.Since(start)

	if err == nil && (result == nil || result.Image == nil || len(result.Image.Data) == 0) {
		err = ErrNoImageData
	}
	if err != nil {
		c.logger.Error("generation failed",
			"model", string(model),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	logAttrs := []any{
		"model", string(model),
		"duration_ms", duration.Milliseconds(),
		"image_bytes", len(result.Image.Data),
	}
	if result.UsageMetadata != nil {
		logAttrs = append(logAttrs,
			"prompt_tokens", result.UsageMetadata.PromptTokens,
			"response_tokens", result.UsageMetadata.CandidatesTokens,
			"total_tokens", result.UsageMetadata.TotalTokens,
		)
	}
	c.logger.Info("generation completed", logAttrs...)

	return result, nil
}

// ListModels returns all registered models.
func (c *Client) ListModels() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]Model, 0, len(c.modelMappings))
	for model := range c.modelMappings {
		models = append(models, model)
	}
	return models
}

// GetModelInfo returns model information for a specific model.
func (c *Client) GetModelInfo(model Model) (*ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.modelInfo[model]
	return info, ok
}

// Close releases all provider resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for provider, gen := range c.providers {
		if err := gen.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", provider, err))
		}
	}
	c.providers = make(map[Provider]ImageGenerator)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// checkRateLimit checks rate limits for a model and optionally waits.
func (c *Client) checkRateLimit(ctx context.Context, model Model, config *GenerateConfig, prompt string) error {
	const tokenBuffer = 100

	c.mu.RLock()
	limiter := c.rateLimiters[model]
	c.mu.RUnlock()

	if limiter == nil {
		return nil
	}

	estimatedTokens := c.tokenEstimator.EstimateTokens(prompt) + tokenBuffer

	if config.WaitOnRateLimit {
		return limiter.WaitAndConsume(ctx, estimatedTokens, config.MaxWaitDuration)
	}

	if !limiter.TryConsume(estimatedTokens) {
		limitType := limiter.Limiting(estimatedTokens)
		if limitType == "" {
			limitType = ratelimiter.LimitTokens
		}
		return &RateLimitError{
			RetryAfter: limiter.TimeUntilAvailable(estimatedTokens),
			LimitType:  limitType,
			Model:      string(model),
		}
	}

	return nil
}

// resolveModel determines the actual model to use.
func (c *Client) resolveModel(config *GenerateConfig) Model {
	if config != nil && config.Model != ModelDefault {
		return config.Model
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultModel
}

// getGeneratorForConfig returns the appropriate generator and adjusted config.
func (c *Client) getGeneratorForConfig(config *GenerateConfig) (ImageGenerator, *GenerateConfig, error) {
	model := c.resolveModel(config)

	c.mu.RLock()
	mapping, ok := c.modelMappings[model]
	info := c.modelInfo[model]
	gen, hasProvider := c.providers[mapping.Provider]
	c.mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotRegistered, model)
	}
	if !hasProvider {
		return nil, nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, mapping.Provider)
	}
	if info != nil && !info.SupportsAspectRatio(config.AspectRatio) {
		return nil, nil, fmt.Errorf("%w: %s does not support %s", ErrUnsupportedAspectRatio, model, config.AspectRatio)
	}

	configCopy := *config
	configCopy.Model = Model(mapping.ActualModelName)

	return gen, &configCopy, nil
}
