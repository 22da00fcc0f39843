package domain

import (
	"fmt"
	"time"
)

// AISettings holds team-wide AI configuration.
// It is read on every orchestration and can be updated at runtime via API.
type AISettings struct {
	TeamID string `json:"team_id"`

	// Feature switches
	Enabled          bool `json:"enabled"`
	StreamingEnabled bool `json:"streaming_enabled"`
	UIVisible        bool `json:"ui_visible"`

	// Routing
	DefaultTextProvider  ProviderID `json:"default_text_provider"`
	DefaultImageProvider ProviderID `json:"default_image_provider"`
	AllowFallback        bool       `json:"allow_fallback"`

	// Limits
	RequestsPerMinute int `json:"requests_per_minute"` // Used when the plan sets none

	Providers []ProviderSettings `json:"providers"`

	// Metadata
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"` // User ID
}

// ProviderSettings configures one provider backend
type ProviderSettings struct {
	Provider   ProviderID `json:"provider"`
	Model      string     `json:"model"`
	ImageModel string     `json:"image_model,omitempty"`
	APIKey     string     `json:"-"` // Never serialize to JSON
	BaseURL    string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if provider settings are usable
func (p *ProviderSettings) IsConfigured() bool {
	if p.Provider == "" {
		return false
	}
	if p.Provider.RequiresAPIKey() && p.APIKey == "" {
		return false
	}
	return true
}

// DefaultAISettings returns defaults for a new team: AI on, mock provider only
func DefaultAISettings(teamID string) *AISettings {
	return &AISettings{
		TeamID:               teamID,
		Enabled:              true,
		StreamingEnabled:     true,
		UIVisible:            true,
		DefaultTextProvider:  ProviderMock,
		DefaultImageProvider: ProviderMock,
		AllowFallback:        true,
		RequestsPerMinute:    20,
		Providers:            []ProviderSettings{{Provider: ProviderMock}},
		UpdatedAt:            time.Now(),
	}
}

// PreferredProvider returns the configured default provider for a modality
func (s *AISettings) PreferredProvider(m Modality) ProviderID {
	if m == ModalityImage {
		return s.DefaultImageProvider
	}
	return s.DefaultTextProvider
}

// Provider returns the settings for a provider id
func (s *AISettings) Provider(id ProviderID) (ProviderSettings, bool) {
	for _, p := range s.Providers {
		if p.Provider == id {
			return p, true
		}
	}
	return ProviderSettings{}, false
}

// Validate checks if AISettings are valid
func (s *AISettings) Validate() error {
	if s.DefaultTextProvider != "" && !s.DefaultTextProvider.IsValid() {
		return ErrInvalidProvider
	}
	if s.DefaultImageProvider != "" && !s.DefaultImageProvider.IsValid() {
		return ErrInvalidProvider
	}
	if s.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute must not be negative", ErrInvalidInput)
	}
	seen := make(map[ProviderID]bool, len(s.Providers))
	for _, p := range s.Providers {
		if !p.Provider.IsValid() {
			return ErrInvalidProvider
		}
		if seen[p.Provider] {
			return fmt.Errorf("%w: provider %s configured twice", ErrInvalidInput, p.Provider)
		}
		seen[p.Provider] = true
	}
	return nil
}
