package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure Factory implements ProviderFactory
var _ driven.ProviderFactory = (*Factory)(nil)

// Factory creates AI providers based on configuration
type Factory struct {
	mockDelay time.Duration
}

// NewFactory creates a new AI provider factory.
// mockDelay paces the mock provider's streamed words.
func NewFactory(mockDelay time.Duration) *Factory {
	return &Factory{mockDelay: mockDelay}
}

// CreateProvider creates a provider from settings.
// Returns nil, nil when the settings are not configured.
func (f *Factory) CreateProvider(settings *domain.ProviderSettings) (driven.Provider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		p   driven.Provider
		err error
	)
	switch settings.Provider {
	case domain.ProviderOpenAI:
		p, err = NewOpenAIProvider(settings.APIKey, settings.Model, settings.ImageModel, settings.BaseURL)
	case domain.ProviderAnthropic:
		p, err = NewAnthropicProvider(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.ProviderGemini:
		p, err = NewGeminiProvider(context.Background(), settings.APIKey, settings.Model, settings.ImageModel, settings.BaseURL)
	case domain.ProviderMock:
		p = NewMockProvider(settings.Model, f.mockDelay)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
