package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
	"github.com/custodia-labs/quill-core/internal/runtime"
)

func newTestSettingsService() (*mocks.MockAISettingsStore, *mocks.MockProviderFactory, *runtime.Providers, driving.SettingsService) {
	store := mocks.NewMockAISettingsStore()
	factory := mocks.NewMockProviderFactory()
	providers := runtime.NewProviders()
	svc := NewSettingsService(store, factory, providers, "team-123", nil)
	return store, factory, providers, svc
}

func ptr[T any](v T) *T { return &v }

func TestSettingsService_GetAISettingsDefaults(t *testing.T) {
	_, _, _, svc := newTestSettingsService()

	settings, err := svc.GetAISettings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.TeamID != "team-123" {
		t.Errorf("expected team-123, got %s", settings.TeamID)
	}
	if settings.DefaultTextProvider != domain.ProviderMock {
		t.Errorf("expected mock default, got %s", settings.DefaultTextProvider)
	}
}

func TestSettingsService_UpdateAISettings(t *testing.T) {
	store, factory, providers, svc := newTestSettingsService()
	ctx := context.Background()

	status, err := svc.UpdateAISettings(ctx, "admin-1", driving.UpdateAISettingsRequest{
		StreamingEnabled:    ptr(false),
		DefaultTextProvider: ptr(domain.ProviderOpenAI),
		RequestsPerMinute:   ptr(5),
		Providers: []driving.ProviderSettingsInput{
			{Provider: domain.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.Streaming {
		t.Error("expected streaming disabled")
	}
	if len(status.Providers) != 2 {
		t.Fatalf("expected mock and openai status, got %+v", status.Providers)
	}
	for _, ps := range status.Providers {
		if !ps.Available {
			t.Errorf("expected %s available, got error %q", ps.Provider, ps.Error)
		}
	}
	if providers.Len() != 2 {
		t.Errorf("expected 2 registered providers, got %d", providers.Len())
	}
	if len(factory.Created()) != 2 {
		t.Errorf("expected 2 providers created, got %d", len(factory.Created()))
	}

	saved, err := store.GetAISettings(ctx, "team-123")
	if err != nil {
		t.Fatalf("settings not saved: %v", err)
	}
	if saved.RequestsPerMinute != 5 || saved.UpdatedBy != "admin-1" {
		t.Errorf("unexpected saved settings: %+v", saved)
	}
}

func TestSettingsService_UpdateKeepsStoredKey(t *testing.T) {
	store, _, _, svc := newTestSettingsService()
	ctx := context.Background()

	_, err := svc.UpdateAISettings(ctx, "admin-1", driving.UpdateAISettingsRequest{
		Providers: []driving.ProviderSettingsInput{
			{Provider: domain.ProviderAnthropic, Model: "claude-haiku", APIKey: "key-1"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.UpdateAISettings(ctx, "admin-1", driving.UpdateAISettingsRequest{
		Providers: []driving.ProviderSettingsInput{
			{Provider: domain.ProviderAnthropic, Model: "claude-sonnet"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := store.GetAISettings(ctx, "team-123")
	p, ok := saved.Provider(domain.ProviderAnthropic)
	if !ok {
		t.Fatal("expected anthropic settings")
	}
	if p.APIKey != "key-1" || p.Model != "claude-sonnet" {
		t.Errorf("unexpected provider settings: %+v", p)
	}
}

func TestSettingsService_UpdateValidation(t *testing.T) {
	_, _, _, svc := newTestSettingsService()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     driving.UpdateAISettingsRequest
		wantErr error
	}{
		{
			name:    "unknown default provider",
			req:     driving.UpdateAISettingsRequest{DefaultTextProvider: ptr(domain.ProviderID("cohere"))},
			wantErr: domain.ErrInvalidProvider,
		},
		{
			name:    "negative rpm",
			req:     driving.UpdateAISettingsRequest{RequestsPerMinute: ptr(-1)},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "missing api key",
			req: driving.UpdateAISettingsRequest{Providers: []driving.ProviderSettingsInput{
				{Provider: domain.ProviderGemini, Model: "gemini-2.5-flash"},
			}},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateAISettings(ctx, "admin-1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSettingsService_ProviderFailureIsReported(t *testing.T) {
	_, factory, providers, svc := newTestSettingsService()
	factory.CreateFn = func(settings *domain.ProviderSettings) (driven.Provider, error) {
		p := mocks.NewMockProvider(settings.Provider, domain.CapText)
		if settings.Provider == domain.ProviderOpenAI {
			p.PingFn = func() error { return domain.ErrServiceUnavailable }
		}
		return p, nil
	}

	status, err := svc.UpdateAISettings(context.Background(), "admin-1", driving.UpdateAISettingsRequest{
		Providers: []driving.ProviderSettingsInput{
			{Provider: domain.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "sk-test"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ps := range status.Providers {
		switch ps.Provider {
		case domain.ProviderOpenAI:
			if ps.Available || ps.Error == "" {
				t.Errorf("expected openai unavailable with error, got %+v", ps)
			}
		case domain.ProviderMock:
			if !ps.Available {
				t.Errorf("expected mock available, got %+v", ps)
			}
		}
	}
	if _, ok := providers.Get(domain.ProviderOpenAI); ok {
		t.Error("failing provider should not be registered")
	}
}

func TestSettingsService_RemoveProvider(t *testing.T) {
	_, _, providers, svc := newTestSettingsService()
	ctx := context.Background()

	if _, err := svc.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := providers.Get(domain.ProviderMock); !ok {
		t.Fatal("expected mock provider after reload")
	}

	_, err := svc.UpdateAISettings(ctx, "admin-1", driving.UpdateAISettingsRequest{
		Providers: []driving.ProviderSettingsInput{{Provider: domain.ProviderMock, Remove: true}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if providers.Len() != 0 {
		t.Errorf("expected empty registry, got %d", providers.Len())
	}

	status, err := svc.GetAIStatus(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Providers) != 0 {
		t.Errorf("expected no providers, got %+v", status.Providers)
	}
}
