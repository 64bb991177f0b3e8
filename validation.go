package imagine

import (
	"errors"
	"strings"
)

// ErrEmptyPrompt is returned for prompts that are empty or whitespace only.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// ValidatePrompt validates a text prompt.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateConfig checks the request configuration before it is sent.
func ValidateConfig(config *GenerateConfig) error {
	if config == nil || config.AspectRatio == "" {
		return nil
	}
	_, err := ParseAspectRatio(string(config.AspectRatio))
	return err
}
