package core

import (
	"context"

	"ragchat-backend/internal/models"
)

// EmbeddingProvider computes fixed-dimension vectors for texts. The returned
// slice is index-aligned with the input.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionOptions tune one completion call. Zero values fall back to the
// defaults below.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}

const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// DefaultCompletionOptions returns the standard generation parameters.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
	}
}

// CompletionClient turns a prompt or short transcript into one assistant
// message. Failures surface as a *CompletionError rather than being encoded
// into message content; callers decide how to render them.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (models.Message, error)
	ChatComplete(ctx context.Context, msgs []models.Message) (models.Message, error)
}
