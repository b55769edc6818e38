package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// Service applies the generation deadline and records usage around a Client.
type Service struct {
	client  Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a generation service. A zero timeout leaves calls unbounded.
func New(client Client, model string, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{client: client, model: model, timeout: timeout, logger: logger}
}

// Generate returns the model's completion for prompt, verbatim.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.client.Generate(ctx, prompt)
	duration := time.Since(start)

	metrics.GenerationRequestDuration.WithLabelValues(s.model).Observe(duration.Seconds())

	if err != nil {
		err = classify(ctx, err)
		status := "unavailable"
		if errors.Is(err, domain.ErrGenerationTimeout) {
			status = "timeout"
		}
		metrics.GenerationRequestsTotal.WithLabelValues(s.model, status).Inc()
		s.logger.Error("Generation failed",
			zap.String("model", s.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("generate: %w", err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(s.model, "ok").Inc()
	metrics.GenerationTokensTotal.WithLabelValues(s.model, "prompt").Add(float64(res.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(s.model, "completion").Add(float64(res.CompletionTokens))
	domain.UsageFromContext(ctx).AddGenerationTokens(res.PromptTokens + res.CompletionTokens)

	s.logger.Debug("Generation completed",
		zap.String("model", s.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)

	return res.Text, nil
}

// classify guarantees every failure carries one of the two generation sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrGenerationTimeout), errors.Is(err, domain.ErrGenerationUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrGenerationTimeout, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
}
