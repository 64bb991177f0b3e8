package imagine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/imagine/ratelimiter"
)

var testPNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestClient_Generate_ReturnsPNGDataURI(t *testing.T) {
	var gotPrompt string
	var gotConfig *GenerateConfig

	gen := &MockImageGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			gotPrompt = prompt
			gotConfig = config
			// Provider reports jpeg; the reference is still labelled png.
			return &GenerateResult{Image: &Image{Data: testPNG, MIMEType: "image/jpeg"}}, nil
		},
	}
	client := NewClient(gen)
	defer client.Close()

	for _, ratio := range SupportedAspectRatios {
		uri, err := client.Generate(context.Background(), "a cat", &GenerateConfig{AspectRatio: ratio})
		require.NoError(t, err)

		mime, data, err := DecodeDataURI(uri)
		require.NoError(t, err)
		assert.Equal(t, MIMETypePNG, mime)
		assert.Equal(t, testPNG, data)

		assert.Equal(t, "a cat", gotPrompt)
		assert.Equal(t, ratio, gotConfig.AspectRatio)
		assert.Equal(t, Model("test-model-api"), gotConfig.Model, "model is mapped to the API name")
	}
}

func TestClient_Generate_DefaultsAspectRatio(t *testing.T) {
	var gotConfig *GenerateConfig
	gen := &MockImageGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			gotConfig = config
			return &GenerateResult{Image: &Image{Data: testPNG}}, nil
		},
	}
	client := NewClient(gen)

	_, err := client.Generate(context.Background(), "a cat", nil)
	require.NoError(t, err)
	assert.Equal(t, AspectRatio1x1, gotConfig.AspectRatio)
}

func TestClient_Generate_NoImageData(t *testing.T) {
	results := map[string]*GenerateResult{
		"nil result":  nil,
		"nil image":   {Text: "sorry"},
		"empty image": {Image: &Image{MIMEType: MIMETypePNG}},
	}

	for name, res := range results {
		t.Run(name, func(t *testing.T) {
			gen := &MockImageGenerator{
				GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
					return res, nil
				},
			}
			uri, err := NewClient(gen).Generate(context.Background(), "a cat", nil)
			assert.ErrorIs(t, err, ErrNoImageData)
			assert.Empty(t, uri)
		})
	}
}

func TestClient_Generate_ProviderFailurePropagates(t *testing.T) {
	providerErr := errors.New("API key not valid. Please pass a valid API key.")
	gen := &MockImageGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			return nil, providerErr
		},
	}

	_, err := NewClient(gen).Generate(context.Background(), "a cat", nil)
	assert.ErrorIs(t, err, providerErr)
	assert.Equal(t, providerErr.Error(), err.Error())
}

func TestClient_Generate_UnsupportedAspectRatio(t *testing.T) {
	called := false
	gen := &MockImageGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			called = true
			return nil, nil
		},
	}

	_, err := NewClient(gen).Generate(context.Background(), "a cat", &GenerateConfig{AspectRatio: "21:9"})
	assert.ErrorIs(t, err, ErrUnsupportedAspectRatio)
	assert.False(t, called, "provider must not be called")
}

func TestClient_Generate_ModelRouting(t *testing.T) {
	primary := &MockImageGenerator{}
	var secondaryCalled bool
	secondary := &MockImageGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{{Name: "other", Provider: "other-provider", APIModelName: "other-api"}}
		},
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			secondaryCalled = true
			assert.Equal(t, Model("other-api"), config.Model)
			return &GenerateResult{Image: &Image{Data: testPNG}}, nil
		},
	}

	client := NewClient(primary, WithProvider(secondary))
	assert.Equal(t, Model("test-model"), client.DefaultModel())
	assert.ElementsMatch(t, []Model{"test-model", "other"}, client.ListModels())

	_, err := client.Generate(context.Background(), "a cat", DefaultConfig().WithModel("other"))
	require.NoError(t, err)
	assert.True(t, secondaryCalled)

	_, err = client.Generate(context.Background(), "a cat", DefaultConfig().WithModel("missing"))
	assert.ErrorIs(t, err, ErrModelNotRegistered)

	client = NewClient(primary, WithProvider(secondary), WithDefaultModel("other"))
	assert.Equal(t, Model("other"), client.DefaultModel())
}

func TestClient_Generate_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	gen := &MockImageGenerator{
		GenerateFunc: func(ctx context.Context, prompt string, config *GenerateConfig) (*GenerateResult, error) {
			close(started)
			<-release
			return &GenerateResult{Image: &Image{Data: testPNG}}, nil
		},
	}
	client := NewClient(gen)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = client.Generate(context.Background(), "first", nil)
	}()

	<-started
	assert.True(t, client.Busy())

	_, err := client.Generate(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, client.Busy())

	// The guard is released after completion.
	gen.GenerateFunc = nil
	_, err = client.Generate(context.Background(), "third", nil)
	assert.NoError(t, err)
}

func TestClient_Generate_RateLimit(t *testing.T) {
	gen := &MockImageGenerator{
		ModelsFunc: func() []ModelInfo {
			return []ModelInfo{
				{
					Name:         "test-model",
					Provider:     "test-provider",
					APIModelName: "test-model-api",
					RateLimits: RateLimits{
						TokensPerMinute:   100, // Small limit for testing
						RequestsPerMinute: 10,
					},
				},
			}
		},
	}

	client := NewClient(gen)
	defer client.Close()

	// "test prompt" estimates to 7 tokens, plus the 100 token buffer.
	_, err := client.Generate(context.Background(), "test prompt", nil)
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err), "expected RateLimitError, got %T: %v", err, err)

	client.SetRateLimiter("test-model", ratelimiter.New(200, 10))
	_, err = client.Generate(context.Background(), "test prompt", nil)
	assert.NoError(t, err)
}

func TestClient_Generate_RateLimitType(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		client := NewClient(&MockImageGenerator{},
			WithRateLimiter("test-model", ratelimiter.NewWithClock(0, 1, time.Minute, time.Now)))

		_, err := client.Generate(context.Background(), "hello", nil)
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "hello", nil)
		var rlErr *RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.Equal(t, ratelimiter.LimitRequests, rlErr.LimitType)
		assert.Equal(t, "test-model", rlErr.Model)
		assert.Positive(t, rlErr.RetryAfter)
	})

	t.Run("tokens", func(t *testing.T) {
		client := NewClient(&MockImageGenerator{},
			WithRateLimiter("test-model", ratelimiter.NewWithClock(50, 0, time.Minute, time.Now)))

		_, err := client.Generate(context.Background(), "hello", nil)
		var rlErr *RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.Equal(t, ratelimiter.LimitTokens, rlErr.LimitType)
	})
}

func TestClient_Generate_WaitOnRateLimit(t *testing.T) {
	gen := &MockImageGenerator{}
	limiter := ratelimiter.New(200, 1)
	client := NewClient(gen, WithRateLimiter("test-model", limiter))

	_, err := client.Generate(context.Background(), "hello", nil)
	require.NoError(t, err)

	// The single request slot is spent; waiting for it is longer than allowed.
	_, err = client.Generate(context.Background(), "hello", &GenerateConfig{
		WaitOnRateLimit: true,
		MaxWaitDuration: 10 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ratelimiter.ErrMaxWaitExceeded)
}

func TestClient_Close(t *testing.T) {
	closeErr := errors.New("boom")
	gen := &MockImageGenerator{CloseFunc: func() error { return closeErr }}

	err := NewClient(gen).Close()
	assert.ErrorIs(t, err, closeErr)
}

func TestSimpleTokenEstimator(t *testing.T) {
	e := NewSimpleTokenEstimator()
	assert.Equal(t, 0, e.EstimateTokens(""))
	assert.Equal(t, 7, e.EstimateTokens("test prompt"))
	assert.Equal(t, e.EstimateTokens("aaaa"), e.EstimateTokens("日本語で"), "runes, not bytes")
}
