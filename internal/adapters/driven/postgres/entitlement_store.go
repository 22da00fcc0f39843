package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.EntitlementStore = (*EntitlementStore)(nil)
	_ driven.UsageStore       = (*UsageStore)(nil)
)

// EntitlementStore implements driven.EntitlementStore using PostgreSQL
type EntitlementStore struct {
	db *DB
}

// NewEntitlementStore creates a new EntitlementStore
func NewEntitlementStore(db *DB) *EntitlementStore {
	return &EntitlementStore{db: db}
}

// GetPlan returns the plan assigned to a user
func (s *EntitlementStore) GetPlan(ctx context.Context, userID string) (*domain.Plan, error) {
	query := `
		SELECT p.id, p.name, p.capabilities, p.requests_per_minute, p.monthly_token_quota, p.daily_token_cap
		FROM user_plans up
		JOIN plans p ON p.id = up.plan_id
		WHERE up.user_id = $1
	`

	var plan domain.Plan
	var capabilities []string

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&plan.ID,
		&plan.Name,
		pq.Array(&capabilities),
		&plan.RequestsPerMinute,
		&plan.MonthlyTokenQuota,
		&plan.DailyTokenCap,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	plan.Capabilities = make([]domain.PlanCapability, len(capabilities))
	for i, c := range capabilities {
		plan.Capabilities[i] = domain.PlanCapability(c)
	}

	return &plan, nil
}

// SavePlan creates or updates a plan definition
func (s *EntitlementStore) SavePlan(ctx context.Context, plan *domain.Plan) error {
	capabilities := make([]string, len(plan.Capabilities))
	for i, c := range plan.Capabilities {
		capabilities[i] = string(c)
	}

	query := `
		INSERT INTO plans (id, name, capabilities, requests_per_minute, monthly_token_quota, daily_token_cap)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			capabilities = EXCLUDED.capabilities,
			requests_per_minute = EXCLUDED.requests_per_minute,
			monthly_token_quota = EXCLUDED.monthly_token_quota,
			daily_token_cap = EXCLUDED.daily_token_cap
	`

	_, err := s.db.ExecContext(ctx, query,
		plan.ID,
		plan.Name,
		pq.Array(capabilities),
		plan.RequestsPerMinute,
		plan.MonthlyTokenQuota,
		plan.DailyTokenCap,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// AssignPlan sets a user's plan
func (s *EntitlementStore) AssignPlan(ctx context.Context, userID, planID string) error {
	query := `
		INSERT INTO user_plans (user_id, plan_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, userID, planID, time.Now())
	if err != nil {
		return fmt.Errorf("assign plan: %w", err)
	}
	return nil
}

// UsageStore implements driven.UsageStore using PostgreSQL
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new UsageStore
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Record stores a usage event
func (s *UsageStore) Record(ctx context.Context, event *domain.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO usage_events (id, user_id, provider_id, model, action_id, input_tokens, output_tokens, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		string(event.ProviderID),
		event.Model,
		string(event.ActionID),
		event.InputTokens,
		event.OutputTokens,
		event.CorrelationID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TokensSince sums a user's tokens recorded at or after since
func (s *UsageStore) TokensSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(input_tokens + output_tokens), 0)
		FROM usage_events
		WHERE user_id = $1 AND created_at >= $2
	`

	var total int64
	if err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return total, nil
}
