package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a model provider is failing while the store still answers.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentStore      = "store"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store      StorePinger
	embedding  ProviderChecker
	generation ProviderChecker
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c ProviderChecker) Option {
	return func(s *Service) { s.embedding = c }
}

// WithGeneration adds the language model check.
func WithGeneration(c ProviderChecker) Option {
	return func(s *Service) { s.generation = c }
}

// WithTimeout overrides DefaultCheckTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service. Provider checks are optional.
func New(store StorePinger, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, timeout: DefaultCheckTimeout, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)

	checks[ComponentStore] = s.run(ctx, ComponentStore, s.store.Ping)
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.run(ctx, ComponentEmbedding, s.embedding.HealthCheck)
	}
	if s.generation != nil {
		checks[ComponentGeneration] = s.run(ctx, ComponentGeneration, s.generation.HealthCheck)
	}

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == ComponentStore {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, name string, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
