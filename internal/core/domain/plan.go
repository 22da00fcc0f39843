package domain

import (
	"slices"
	"time"
)

// PlanCapability is a feature granted by a subscription plan
type PlanCapability string

const (
	CapabilityAIEnabled    PlanCapability = "ai_enabled"
	CapabilityAICoverImage PlanCapability = "ai_cover_image"
)

// Plan is a user's subscription entitlement
type Plan struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Capabilities      []PlanCapability `json:"capabilities"`
	RequestsPerMinute int              `json:"requests_per_minute"`
	MonthlyTokenQuota int64            `json:"monthly_token_quota"`
	DailyTokenCap     int64            `json:"daily_token_cap,omitempty"` // 0 means no daily cap
}

// Has reports whether the plan grants the capability
func (p *Plan) Has(c PlanCapability) bool {
	return p != nil && slices.Contains(p.Capabilities, c)
}

// UsageEvent records token consumption of one billable provider call
type UsageEvent struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ProviderID    ProviderID `json:"provider_id"`
	Model         string     `json:"model"`
	ActionID      ActionID   `json:"action_id"`
	InputTokens   int64      `json:"input_tokens"`
	OutputTokens  int64      `json:"output_tokens"`
	CorrelationID string     `json:"correlation_id"` // Request ID
	CreatedAt     time.Time  `json:"created_at"`
}

// Tokens returns input plus output tokens
func (e *UsageEvent) Tokens() int64 {
	return e.InputTokens + e.OutputTokens
}

// UsageDecision is the outcome of a usage policy evaluation
type UsageDecision struct {
	Allowed bool     `json:"allowed"`
	UserID  string   `json:"user_id,omitempty"` // Resolved caller, empty for unmetered providers
	Failure *Failure `json:"failure,omitempty"`
}

// Allow returns an allowing decision for the user
func Allow(userID string) UsageDecision {
	return UsageDecision{Allowed: true, UserID: userID}
}

// Deny returns a blocking decision
func Deny(code FailureCode, message string) UsageDecision {
	return UsageDecision{Failure: NewFailure(code, message)}
}

// MonthStart returns the first instant of t's month in UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayStart returns the first instant of t's day in UTC
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
