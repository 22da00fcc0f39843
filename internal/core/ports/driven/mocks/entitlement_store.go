package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

var (
	_ driven.EntitlementStore = (*MockEntitlementStore)(nil)
	_ driven.UsageStore       = (*MockUsageStore)(nil)
	_ driven.AISettingsStore  = (*MockAISettingsStore)(nil)
)

// MockEntitlementStore is a mock implementation of EntitlementStore for testing
type MockEntitlementStore struct {
	mu    sync.RWMutex
	plans map[string]*domain.Plan

	GetPlanFn func(userID string) (*domain.Plan, error)
}

// NewMockEntitlementStore creates a new MockEntitlementStore
func NewMockEntitlementStore() *MockEntitlementStore {
	return &MockEntitlementStore{
		plans: make(map[string]*domain.Plan),
	}
}

// SetPlan assigns a plan to a user
func (m *MockEntitlementStore) SetPlan(userID string, plan *domain.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[userID] = plan
}

func (m *MockEntitlementStore) GetPlan(ctx context.Context, userID string) (*domain.Plan, error) {
	if m.GetPlanFn != nil {
		return m.GetPlanFn(userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return plan, nil
}

// MockUsageStore is a mock implementation of UsageStore for testing
type MockUsageStore struct {
	mu     sync.RWMutex
	events []*domain.UsageEvent

	RecordFn func(event *domain.UsageEvent) error
}

// NewMockUsageStore creates a new MockUsageStore
func NewMockUsageStore() *MockUsageStore {
	return &MockUsageStore{}
}

func (m *MockUsageStore) Record(ctx context.Context, event *domain.UsageEvent) error {
	if m.RecordFn != nil {
		return m.RecordFn(event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *event
	m.events = append(m.events, &e)
	return nil
}

func (m *MockUsageStore) TokensSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, e := range m.events {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			total += e.Tokens()
		}
	}
	return total, nil
}

// Events returns the recorded events (for test assertions).
func (m *MockUsageStore) Events() []*domain.UsageEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.UsageEvent(nil), m.events...)
}

// MockAISettingsStore is a mock implementation of AISettingsStore for testing
type MockAISettingsStore struct {
	mu       sync.RWMutex
	settings map[string]*domain.AISettings
}

// NewMockAISettingsStore creates a new MockAISettingsStore
func NewMockAISettingsStore() *MockAISettingsStore {
	return &MockAISettingsStore{
		settings: make(map[string]*domain.AISettings),
	}
}

func (m *MockAISettingsStore) GetAISettings(ctx context.Context, teamID string) (*domain.AISettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[teamID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Providers = append([]domain.ProviderSettings(nil), s.Providers...)
	return &cp, nil
}

func (m *MockAISettingsStore) SaveAISettings(ctx context.Context, settings *domain.AISettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settings
	cp.Providers = append([]domain.ProviderSettings(nil), settings.Providers...)
	m.settings[settings.TeamID] = &cp
	return nil
}
