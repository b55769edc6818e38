package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks a model provider (embedding or generation).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
