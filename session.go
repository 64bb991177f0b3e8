package imagine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// GenericFailureMessage is shown when a failure has no message worth surfacing.
const GenericFailureMessage = "Failed to generate image. Please try again."

// Suggestions are example prompts offered to users with an empty prompt.
var Suggestions = []string{
	"A futuristic cyberpunk cityscape with neon lights reflecting in rainy streets, cinematic lighting, 8k",
	"Oil painting of a majestic white horse galloping through a field of lavender at sunset",
	"A high-tech laboratory inside a giant glass dome on Mars, scientific machinery, dusty atmosphere",
	"Macro photography of a mechanical butterfly with clockwork wings made of gold and crystals",
	"Surreal landscape where floating islands are connected by glowing waterfalls in a nebula sky",
}

// State is the generation state of a Session.
type State int

const (
	StateIdle State = iota
	StateGenerating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	default:
		return "unknown"
	}
}

// Generator produces an image reference for a prompt. *Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, config *GenerateConfig) (string, error)
}

var _ Generator = (*Client)(nil)

// Session ties a Generator to a History the way an interactive front end
// drives them: blank prompts are skipped, one request is outstanding at a
// time, and successful results are prepended to the history.
type Session struct {
	generator Generator
	history   *History
	logger    *slog.Logger
	now       func() time.Time

	state      State
	lastError  string
	lastIssued int64

	mu sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a Session over generator and history.
func NewSession(generator Generator, history *History, opts ...SessionOption) *Session {
	s := &Session{
		generator: generator,
		history:   history,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the session's history store.
func (s *Session) History() *History {
	return s.history
}

// State returns the current generation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the user-facing message of the last failed submission,
// or "" if the last submission succeeded.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Submit generates an image for prompt and prepends it to the history.
//
// A blank prompt is skipped: nothing is issued and (nil, nil) is returned.
// On failure the history is untouched and LastError reports the message.
func (s *Session) Submit(ctx context.Context, prompt string, config *GenerateConfig) (*GeneratedImage, error) {
	if ValidatePrompt(prompt) != nil {
		return nil, nil
	}

	s.mu.Lock()
	if s.state == StateGenerating {
		s.mu.Unlock()
		return nil, ErrGenerationInProgress
	}
	s.state = StateGenerating
	s.lastError = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
	}()

	if config == nil {
		config = DefaultConfig()
	}
	if config.AspectRatio == "" {
		config = config.WithAspectRatio(DefaultAspectRatio)
	}

	url, err := s.generator.Generate(ctx, prompt, config)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	img := s.newImage(url, prompt, config.AspectRatio)
	if err := s.history.Append(ctx, img); err != nil {
		s.fail(err)
		return nil, err
	}

	s.logger.Info("image added to history",
		"id", img.ID,
		"aspect_ratio", img.Config.AspectRatio.String(),
		"history_len", s.history.Len(),
	)
	return &img, nil
}

// Delete removes the image with the given id from the history.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.history.Remove(ctx, id)
}

// Export saves the image with the given id to storage.
func (s *Session) Export(ctx context.Context, id string, storage Storage) (*StorageResult, error) {
	img, ok := s.history.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	return SaveToStorage(ctx, storage, img)
}

// UserMessage converts a generation error into the text shown to users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoImageData) || err.Error() == "" {
		return GenericFailureMessage
	}
	return err.Error()
}

func (s *Session) fail(err error) {
	msg := UserMessage(err)

	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()

	s.logger.Warn("generation request failed", "error", err.Error())
}

// newImage stamps a result with the current time. Ids are the unix
// millisecond timestamp, bumped forward when that id was already issued.
func (s *Session) newImage(url, prompt string, ratio AspectRatio) GeneratedImage {
	now := s.now().UnixMilli()

	s.mu.Lock()
	id := now
	if id <= s.lastIssued {
		id = s.lastIssued + 1
	}
	for s.history.Contains(strconv.FormatInt(id, 10)) {
		id++
	}
	s.lastIssued = id
	s.mu.Unlock()

	return GeneratedImage{
		ID:        strconv.FormatInt(id, 10),
		URL:       url,
		Prompt:    prompt,
		Timestamp: now,
		Config:    ImageConfig{AspectRatio: ratio},
	}
}
