package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
	"github.com/custodia-labs/quill-core/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// settingsService implements the SettingsService interface
type settingsService struct {
	settingsStore driven.AISettingsStore
	factory       driven.ProviderFactory
	providers     *runtime.Providers
	teamID        string
	logger        *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	settingsStore driven.AISettingsStore,
	factory driven.ProviderFactory,
	providers *runtime.Providers,
	teamID string,
	logger *slog.Logger,
) driving.SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		settingsStore: settingsStore,
		factory:       factory,
		providers:     providers,
		teamID:        teamID,
		logger:        logger,
	}
}

// GetAISettings retrieves the current AI configuration
func (s *settingsService) GetAISettings(ctx context.Context) (*domain.AISettings, error) {
	settings, err := s.settingsStore.GetAISettings(ctx, s.teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultAISettings(s.teamID), nil
	}
	return settings, err
}

// UpdateAISettings updates AI configuration and hot-reloads providers
func (s *settingsService) UpdateAISettings(ctx context.Context, updaterID string, req driving.UpdateAISettingsRequest) (*driving.AISettingsStatus, error) {
	settings, err := s.GetAISettings(ctx)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.StreamingEnabled != nil {
		settings.StreamingEnabled = *req.StreamingEnabled
	}
	if req.UIVisible != nil {
		settings.UIVisible = *req.UIVisible
	}
	if req.DefaultTextProvider != nil {
		settings.DefaultTextProvider = *req.DefaultTextProvider
	}
	if req.DefaultImageProvider != nil {
		settings.DefaultImageProvider = *req.DefaultImageProvider
	}
	if req.AllowFallback != nil {
		settings.AllowFallback = *req.AllowFallback
	}
	if req.RequestsPerMinute != nil {
		settings.RequestsPerMinute = *req.RequestsPerMinute
	}
	for _, in := range req.Providers {
		settings.Providers = mergeProvider(settings.Providers, in)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	for _, p := range settings.Providers {
		if !p.IsConfigured() {
			return nil, fmt.Errorf("%w: provider %s requires an API key", domain.ErrInvalidInput, p.Provider)
		}
	}

	settings.UpdatedAt = time.Now()
	settings.UpdatedBy = updaterID

	if err := s.settingsStore.SaveAISettings(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.Info("AI settings updated", "team_id", s.teamID, "updated_by", updaterID)

	return s.apply(ctx, settings), nil
}

// mergeProvider applies one provider input. An empty API key keeps the stored key.
func mergeProvider(list []domain.ProviderSettings, in driving.ProviderSettingsInput) []domain.ProviderSettings {
	for i, p := range list {
		if p.Provider != in.Provider {
			continue
		}
		if in.Remove {
			return append(list[:i:i], list[i+1:]...)
		}
		p.Model = in.Model
		p.ImageModel = in.ImageModel
		p.BaseURL = in.BaseURL
		if in.APIKey != "" {
			p.APIKey = in.APIKey
		}
		list[i] = p
		return list
	}
	if in.Remove {
		return list
	}
	return append(list, domain.ProviderSettings{
		Provider:   in.Provider,
		Model:      in.Model,
		ImageModel: in.ImageModel,
		APIKey:     in.APIKey,
		BaseURL:    in.BaseURL,
	})
}

// GetAIStatus returns the current status of the providers
func (s *settingsService) GetAIStatus(ctx context.Context) (*driving.AISettingsStatus, error) {
	settings, err := s.GetAISettings(ctx)
	if err != nil {
		return nil, err
	}

	status := &driving.AISettingsStatus{
		Enabled:   settings.Enabled,
		Streaming: settings.StreamingEnabled,
		Settings:  settings,
	}
	for _, p := range settings.Providers {
		ps := driving.ProviderStatus{Provider: p.Provider, Model: p.Model}
		if prov, ok := s.providers.Get(p.Provider); ok {
			desc := prov.Descriptor()
			ps.Available = true
			ps.Model = desc.Model
			ps.Capabilities = desc.Capabilities.Names()
		}
		status.Providers = append(status.Providers, ps)
	}
	return status, nil
}

// Reload rebuilds the provider registry from stored settings
func (s *settingsService) Reload(ctx context.Context) (*driving.AISettingsStatus, error) {
	settings, err := s.GetAISettings(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, settings), nil
}

// apply creates, validates and swaps in every configured provider.
// Providers no longer configured are removed. A provider that fails is
// reported unavailable; the others keep working.
func (s *settingsService) apply(ctx context.Context, settings *domain.AISettings) *driving.AISettingsStatus {
	status := &driving.AISettingsStatus{
		Enabled:   settings.Enabled,
		Streaming: settings.StreamingEnabled,
		Settings:  settings,
	}

	configured := make(map[domain.ProviderID]bool, len(settings.Providers))
	for i := range settings.Providers {
		ps := &settings.Providers[i]
		configured[ps.Provider] = true
		st := driving.ProviderStatus{Provider: ps.Provider, Model: ps.Model}

		prov, err := s.factory.CreateProvider(ps)
		switch {
		case err != nil:
			st.Error = err.Error()
			s.providers.Remove(ps.Provider)
		case prov == nil:
			s.providers.Remove(ps.Provider)
		default:
			if err := s.providers.ValidateAndReplace(ctx, prov); err != nil {
				st.Error = err.Error()
				s.providers.Remove(ps.Provider)
			} else {
				desc := prov.Descriptor()
				st.Available = true
				st.Model = desc.Model
				st.Capabilities = desc.Capabilities.Names()
			}
		}
		if st.Error != "" {
			s.logger.Warn("AI provider unavailable", "provider", ps.Provider, "error", st.Error)
		}
		status.Providers = append(status.Providers, st)
	}

	for _, desc := range s.providers.Descriptors() {
		if !configured[desc.ID] {
			s.providers.Remove(desc.ID)
		}
	}
	return status
}
