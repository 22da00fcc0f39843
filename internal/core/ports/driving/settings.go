package driving

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// SettingsService manages the team's AI configuration (admin only)
type SettingsService interface {
	// GetAISettings retrieves the current AI configuration
	GetAISettings(ctx context.Context) (*domain.AISettings, error)

	// UpdateAISettings updates AI configuration and hot-reloads providers
	// Returns whether each configured provider is now available
	UpdateAISettings(ctx context.Context, updaterID string, req UpdateAISettingsRequest) (*AISettingsStatus, error)

	// GetAIStatus returns the current status of the providers
	GetAIStatus(ctx context.Context) (*AISettingsStatus, error)

	// Reload rebuilds the provider registry from stored settings
	Reload(ctx context.Context) (*AISettingsStatus, error)
}

// UpdateAISettingsRequest represents a request to update AI settings.
// Nil fields are left unchanged.
type UpdateAISettingsRequest struct {
	Enabled              *bool                   `json:"enabled,omitempty"`
	StreamingEnabled     *bool                   `json:"streaming_enabled,omitempty"`
	UIVisible            *bool                   `json:"ui_visible,omitempty"`
	DefaultTextProvider  *domain.ProviderID      `json:"default_text_provider,omitempty"`
	DefaultImageProvider *domain.ProviderID      `json:"default_image_provider,omitempty"`
	AllowFallback        *bool                   `json:"allow_fallback,omitempty"`
	RequestsPerMinute    *int                    `json:"requests_per_minute,omitempty"`
	Providers            []ProviderSettingsInput `json:"providers,omitempty"`
}

// ProviderSettingsInput is the input for one provider's credentials.
// An empty APIKey keeps the stored key.
type ProviderSettingsInput struct {
	Provider   domain.ProviderID `json:"provider"`
	Model      string            `json:"model"`
	ImageModel string            `json:"image_model,omitempty"`
	APIKey     string            `json:"api_key,omitempty"`
	BaseURL    string            `json:"base_url,omitempty"`
	Remove     bool              `json:"remove,omitempty"`
}

// AISettingsStatus represents the status of AI providers
type AISettingsStatus struct {
	Enabled   bool               `json:"enabled"`
	Streaming bool               `json:"streaming"`
	Providers []ProviderStatus   `json:"providers"`
	Settings  *domain.AISettings `json:"settings,omitempty"`
}

// ProviderStatus represents the status of a single provider
type ProviderStatus struct {
	Provider     domain.ProviderID `json:"provider"`
	Available    bool              `json:"available"`
	Model        string            `json:"model,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Error        string            `json:"error,omitempty"`
}
