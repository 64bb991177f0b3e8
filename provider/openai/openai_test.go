package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/imagine"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gen, err := New(&imagine.ProviderConfig{
		Provider: imagine.ProviderOpenAI,
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
	})
	require.NoError(t, err)
	return gen
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(&imagine.ProviderConfig{Provider: imagine.ProviderOpenAI})
	assert.ErrorIs(t, err, imagine.ErrProviderNotConfigured)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	var got goopenai.ImageRequest

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1700000000,
			"data": []map[string]any{
				{"b64_json": base64.StdEncoding.EncodeToString(png), "revised_prompt": "a red fox"},
			},
		})
	})

	result, err := gen.Generate(context.Background(), "fox", &imagine.GenerateConfig{
		AspectRatio: imagine.AspectRatio16x9,
	})
	require.NoError(t, err)

	assert.Equal(t, png, result.Image.Data)
	assert.Equal(t, "a red fox", result.Text)
	assert.Equal(t, "fox", got.Prompt)
	assert.Equal(t, goopenai.CreateImageSize1792x1024, got.Size)
	assert.Equal(t, goopenai.CreateImageResponseFormatB64JSON, got.ResponseFormat)
	assert.Equal(t, goopenai.CreateImageModelDallE3, got.Model)
}

func TestOpenAIGenerator_Generate_Errors(t *testing.T) {
	t.Run("empty data", func(t *testing.T) {
		gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"created": 1, "data": []}`)
		})

		_, err := gen.Generate(context.Background(), "fox", nil)
		assert.ErrorIs(t, err, imagine.ErrNoImageData)
	})

	t.Run("rate limited", func(t *testing.T) {
		gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
		})

		_, err := gen.Generate(context.Background(), "fox", nil)
		assert.True(t, imagine.IsRateLimitError(err), "got %T: %v", err, err)
	})

	t.Run("content policy", func(t *testing.T) {
		gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error": {"message": "Your request was rejected by the safety system", "type": "invalid_request_error", "code": "content_policy_violation"}}`)
		})

		_, err := gen.Generate(context.Background(), "fox", nil)
		require.Error(t, err)
		assert.False(t, imagine.IsRateLimitError(err))

		var apiErr *goopenai.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apiErr.Error(), err.Error(), "provider message is returned as-is")
		assert.Contains(t, err.Error(), "rejected by the safety system")
	})
}

func TestSizeForAspectRatio(t *testing.T) {
	tests := map[imagine.AspectRatio]string{
		imagine.AspectRatio1x1:  goopenai.CreateImageSize1024x1024,
		imagine.AspectRatio3x4:  goopenai.CreateImageSize1024x1792,
		imagine.AspectRatio9x16: goopenai.CreateImageSize1024x1792,
		imagine.AspectRatio4x3:  goopenai.CreateImageSize1792x1024,
		imagine.AspectRatio16x9: goopenai.CreateImageSize1792x1024,
		"":                      goopenai.CreateImageSize1024x1024,
	}

	for ratio, want := range tests {
		assert.Equal(t, want, sizeForAspectRatio(ratio), "ratio %q", ratio)
	}
}
