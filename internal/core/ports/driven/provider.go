package driven

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// Provider is an AI generation backend behind a uniform execute contract
type Provider interface {
	// Descriptor returns the provider's identity and capability flags
	Descriptor() domain.ProviderDescriptor

	// Execute runs the request to completion and returns its artifacts.
	// Network retries are the provider's concern.
	Execute(ctx context.Context, req *domain.Request) (*domain.Result, error)

	// Ping verifies the provider is reachable with its credentials
	Ping(ctx context.Context) error

	// Close releases resources held by the provider
	Close() error
}

// StreamingProvider is a Provider that can also stream its output.
// Only providers advertising a streaming capability implement it.
type StreamingProvider interface {
	Provider

	// Stream starts the request and returns its events. The channel carries
	// started, deltas and exactly one terminal event (completed or failed),
	// then closes. Cancelling ctx stops the stream; the provider closes the
	// channel without a further terminal event.
	Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error)
}
