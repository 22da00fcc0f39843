package driven

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// AISettingsStore persists team AI settings
type AISettingsStore interface {
	// GetAISettings retrieves AI settings for a team.
	// Returns domain.ErrNotFound if the team has none yet.
	GetAISettings(ctx context.Context, teamID string) (*domain.AISettings, error)

	// SaveAISettings persists AI settings, including encrypted provider keys
	SaveAISettings(ctx context.Context, settings *domain.AISettings) error
}
