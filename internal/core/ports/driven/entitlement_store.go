package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// EntitlementStore resolves a user's subscription plan
type EntitlementStore interface {
	// GetPlan returns the user's plan.
	// Returns domain.ErrNotFound if the user has no plan assigned.
	GetPlan(ctx context.Context, userID string) (*domain.Plan, error)
}

// UsageStore records and sums token usage
type UsageStore interface {
	// Record stores a usage event
	Record(ctx context.Context, event *domain.UsageEvent) error

	// TokensSince returns the user's input+output tokens recorded at or after since
	TokensSince(ctx context.Context, userID string, since time.Time) (int64, error)
}
