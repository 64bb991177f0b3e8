package imagine

import "context"

// ImageGenerator is the core interface for image generation providers.
// Implement this interface to add support for new models or providers.
//
// The first model returned by Models() is considered the default model.
type ImageGenerator interface {
	// Generate creates an image from a text prompt. Implementations return
	// ErrNoImageData when the response carries no inline image.
	Generate(ctx context.Context, prompt string, genConfig *GenerateConfig) (*GenerateResult, error)

	// Models returns the model definitions supported by this provider.
	// The first model in the list is the default.
	Models() []ModelInfo

	// Close releases any resources held by the generator.
	Close() error
}

// KeyValueStore is the persisted slot storage history is mirrored to.
// A slot holds one opaque string value and is overwritten wholesale.
type KeyValueStore interface {
	// Get returns the value stored under key. ok is false when the slot is empty.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value string) error
}
