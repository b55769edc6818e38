package openai

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Generator sends prompts to an OpenAI-compatible /chat/completions endpoint
// (Ollama /v1 by default).
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewGenerator creates a chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	return &Generator{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate sends prompt as a single user message and returns the first choice verbatim.
// No retries.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.GenerationResult{}, generationError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.GenerationResult{}, fmt.Errorf("chat completion returned no choices: %w", domain.ErrGenerationUnavailable)
	}

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies the endpoint answers ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w: %w", domain.ErrGenerationUnavailable, err)
	}
	return nil
}

func generationError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("chat completion: %w: %w", domain.ErrGenerationTimeout, err)
	}
	if status, detail := statusAndDetail(err); status != 0 {
		return fmt.Errorf("chat completion API error %d: %s: %w", status, detail, domain.ErrGenerationUnavailable)
	}
	return fmt.Errorf("chat completion: %w: %w", domain.ErrGenerationUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
