package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// UsagePolicy gates every AI request before the provider is called.
// Denials are returned as decisions, never as errors.
type UsagePolicy struct {
	entitlements driven.EntitlementStore
	usage        driven.UsageStore
	limiter      *RateLimiter
	logger       *slog.Logger
	now          func() time.Time
}

// UsagePolicyConfig holds the policy's collaborators
type UsagePolicyConfig struct {
	Entitlements driven.EntitlementStore
	Usage        driven.UsageStore
	Limiter      *RateLimiter // Optional: a private limiter is created when nil
	Logger       *slog.Logger
}

// NewUsagePolicy creates a usage policy
func NewUsagePolicy(cfg UsagePolicyConfig) *UsagePolicy {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	return &UsagePolicy{
		entitlements: cfg.Entitlements,
		usage:        cfg.Usage,
		limiter:      limiter,
		logger:       logger,
		now:          time.Now,
	}
}

// Limiter returns the policy's rate limiter
func (p *UsagePolicy) Limiter() *RateLimiter {
	return p.limiter
}

// Evaluate runs the checks in order and stops at the first failure
func (p *UsagePolicy) Evaluate(ctx context.Context, auth *domain.AuthContext, provider domain.ProviderDescriptor, action *Action, settings *domain.AISettings) domain.UsageDecision {
	if !provider.Capabilities.RequiresEntitlement() {
		userID := ""
		if auth.Authenticated() {
			userID = auth.UserID
		}
		return domain.Allow(userID)
	}

	if !settings.Enabled {
		return domain.Deny(domain.CodeDisabled, "AI features are disabled")
	}

	if !auth.Authenticated() {
		return domain.Deny(domain.CodeAuthRequired, "sign in to use AI features")
	}
	userID := auth.UserID

	plan, err := p.entitlements.GetPlan(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Deny(domain.CodeDisabled, "your plan does not include AI features")
		}
		return p.blocked(userID, "load plan", err)
	}
	if !plan.Has(domain.CapabilityAIEnabled) {
		return domain.Deny(domain.CodeDisabled, "your plan does not include AI features")
	}

	if action != nil && action.NeedsImage() && !plan.Has(domain.CapabilityAICoverImage) {
		return domain.Deny(domain.CodeCoverDisabled, "your plan does not include cover image generation")
	}

	limit := plan.RequestsPerMinute
	if limit <= 0 {
		limit = settings.RequestsPerMinute
	}
	if !p.limiter.Allow(userID, limit) {
		return domain.Deny(domain.CodeRateLimited,
			fmt.Sprintf("rate limit of %d requests per minute reached, try again shortly", limit))
	}

	now := p.now()
	if plan.MonthlyTokenQuota <= 0 {
		return domain.Deny(domain.CodeQuotaExceeded, "your plan has no AI token quota")
	}
	used, err := p.usage.TokensSince(ctx, userID, domain.MonthStart(now))
	if err != nil {
		return p.blocked(userID, "load monthly usage", err)
	}
	if used >= plan.MonthlyTokenQuota {
		return domain.Deny(domain.CodeQuotaExceeded, "monthly AI token quota exhausted")
	}

	if plan.DailyTokenCap > 0 {
		today, err := p.usage.TokensSince(ctx, userID, domain.DayStart(now))
		if err != nil {
			return p.blocked(userID, "load daily usage", err)
		}
		if today >= plan.DailyTokenCap {
			return domain.Deny(domain.CodeQuotaExceeded, "daily AI token cap reached")
		}
	}

	return domain.Allow(userID)
}

func (p *UsagePolicy) blocked(userID, step string, err error) domain.UsageDecision {
	p.logger.Error("usage policy check failed", "user_id", userID, "step", step, "error", err)
	return domain.Deny(domain.CodeBlocked, "AI usage could not be verified, try again later")
}
