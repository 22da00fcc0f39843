package driven

import (
	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// ProviderFactory creates AI providers based on configuration
type ProviderFactory interface {
	// CreateProvider creates a provider from settings
	// Returns nil, nil if settings are not configured
	CreateProvider(settings *domain.ProviderSettings) (Provider, error)
}
