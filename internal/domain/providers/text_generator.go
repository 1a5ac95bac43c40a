package providers

import (
	"context"
	"errors"
)

// ErrTextGeneratorUnauthorized is returned when the model API rejects the credentials.
var ErrTextGeneratorUnauthorized = errors.New("text generator unauthorized")

// TextGenerator sends a prompt to a generative language model
type TextGenerator interface {
	// GenerateText returns the model's raw text answer for prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
}
