package domain

import "context"

// Generator turns a rendered prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the completion text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
