package imagine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// HistoryKey is the storage slot the history is persisted under.
const HistoryKey = "imagine_ai_history"

// ImageConfig is the configuration recorded alongside a generated image.
type ImageConfig struct {
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// GeneratedImage is a persisted generation result. It is never modified
// after creation.
type GeneratedImage struct {
	ID        string      `json:"id"`
	URL       string      `json:"url"`
	Prompt    string      `json:"prompt"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	Config    ImageConfig `json:"config"`
}

// History is the ordered, newest-first collection of generated images.
// Every mutation rewrites the whole sequence to its KeyValueStore before
// returning, so the in-memory and persisted copies never drift.
type History struct {
	store  KeyValueStore
	key    string
	logger *slog.Logger

	images []GeneratedImage

	mu sync.RWMutex
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithHistoryLogger sets the logger used for load and persist diagnostics.
func WithHistoryLogger(logger *slog.Logger) HistoryOption {
	return func(h *History) {
		h.logger = logger
	}
}

// WithHistoryKey overrides the storage slot name.
func WithHistoryKey(key string) HistoryOption {
	return func(h *History) {
		h.key = key
	}
}

// LoadHistory reads the persisted history from store.
//
// An empty slot yields an empty history. Content that does not parse is
// logged and treated as absent; only a failure of the store itself is
// returned as an error.
func LoadHistory(ctx context.Context, store KeyValueStore, opts ...HistoryOption) (*History, error) {
	h := &History{
		store:  store,
		key:    HistoryKey,
		logger: slog.Default(),
		images: []GeneratedImage{},
	}
	for _, opt := range opts {
		opt(h)
	}

	raw, ok, err := store.Get(ctx, h.key)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if !ok || raw == "" {
		return h, nil
	}

	var images []GeneratedImage
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		h.logger.Warn("failed to parse history, starting empty",
			"key", h.key,
			"error", err.Error(),
		)
		return h, nil
	}
	if images != nil {
		h.images = images
	}

	h.logger.Debug("history loaded", "key", h.key, "count", len(h.images))
	return h, nil
}

// Images returns a copy of the history, newest first.
func (h *History) Images() []GeneratedImage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.images)
}

// Len returns the number of stored images.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.images)
}

// Get returns the image with the given id.
func (h *History) Get(id string) (GeneratedImage, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i := h.indexOf(id)
	if i < 0 {
		return GeneratedImage{}, false
	}
	return h.images[i], true
}

// Contains reports whether id is present.
func (h *History) Contains(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.indexOf(id) >= 0
}

// Append inserts img at the front of the history and persists the result.
func (h *History) Append(ctx context.Context, img GeneratedImage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.indexOf(img.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, img.ID)
	}

	next := make([]GeneratedImage, 0, len(h.images)+1)
	next = append(next, img)
	next = append(next, h.images...)

	return h.commit(ctx, next)
}

// Remove drops the image with the given id and persists the result.
// Removing an id that is not present leaves the list unchanged but still
// rewrites the slot, so the stored copy always matches memory.
func (h *History) Remove(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]GeneratedImage, 0, len(h.images))
	for _, img := range h.images {
		if img.ID != id {
			next = append(next, img)
		}
	}

	return h.commit(ctx, next)
}

// commit persists next and adopts it as the in-memory state. On a write
// failure the in-memory state is left as it was.
func (h *History) commit(ctx context.Context, next []GeneratedImage) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if err := h.store.Set(ctx, h.key, string(data)); err != nil {
		h.logger.Error("failed to persist history",
			"key", h.key,
			"count", len(next),
			"error", err.Error(),
		)
		return fmt.Errorf("persisting history: %w", err)
	}

	h.images = next
	return nil
}

func (h *History) indexOf(id string) int {
	return slices.IndexFunc(h.images, func(img GeneratedImage) bool {
		return img.ID == id
	})
}
