package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

var (
	_ driven.Provider          = (*MockProvider)(nil)
	_ driven.StreamingProvider = (*MockStreamingProvider)(nil)
	_ driven.ProviderFactory   = (*MockProviderFactory)(nil)
)

// MockProvider is a mock implementation of Provider for testing.
// By default it answers every request with Result.
type MockProvider struct {
	mu         sync.Mutex
	descriptor domain.ProviderDescriptor
	calls      []*domain.Request
	closed     bool

	// Result is returned by Execute when ExecuteFn is nil
	Result *domain.Result

	ExecuteFn func(ctx context.Context, req *domain.Request) (*domain.Result, error)
	PingFn    func() error
}

// NewMockProvider creates a mock provider with the given id and capabilities
func NewMockProvider(id domain.ProviderID, caps domain.ProviderCapabilities) *MockProvider {
	return &MockProvider{
		descriptor: domain.ProviderDescriptor{ID: id, Name: string(id), Model: "mock-model", Capabilities: caps},
		Result: &domain.Result{
			Artifacts: []domain.Artifact{{ID: "text-1", Modality: domain.ModalityText, MIMEType: "text/plain", Text: "mock text"}},
			Usage:     domain.Usage{InputTokens: 10, OutputTokens: 5, Model: "mock-model"},
		},
	}
}

func (m *MockProvider) Descriptor() domain.ProviderDescriptor {
	return m.descriptor
}

func (m *MockProvider) Execute(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := *m.Result
	res.RequestID = req.ID()
	return &res, nil
}

func (m *MockProvider) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the requests received (for test assertions).
func (m *MockProvider) Calls() []*domain.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Request(nil), m.calls...)
}

// Closed reports whether Close was called (for test assertions).
func (m *MockProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockStreamingProvider is a MockProvider that also streams.
// By default Stream replays Events, honouring cancellation between events.
type MockStreamingProvider struct {
	*MockProvider

	// Events are replayed by Stream when StreamFn is nil
	Events []domain.StreamEvent

	// Gate, when set, is received from before each event after the first
	Gate chan struct{}

	StreamFn func(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error)
}

// NewMockStreamingProvider creates a streaming mock that sends started,
// one delta per chunk and completed.
func NewMockStreamingProvider(id domain.ProviderID, caps domain.ProviderCapabilities, chunks ...string) *MockStreamingProvider {
	events := []domain.StreamEvent{{Kind: domain.StreamStarted}}
	for _, c := range chunks {
		events = append(events, domain.StreamEvent{Kind: domain.StreamTextDelta, Text: c})
	}
	events = append(events, domain.StreamEvent{
		Kind:  domain.StreamCompleted,
		Usage: &domain.Usage{InputTokens: 10, OutputTokens: int64(len(chunks)), Model: "mock-model"},
	})
	return &MockStreamingProvider{
		MockProvider: NewMockProvider(id, caps),
		Events:       events,
	}
}

func (m *MockStreamingProvider) Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.StreamFn != nil {
		return m.StreamFn(ctx, req)
	}

	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		for i, ev := range m.Events {
			if i > 0 && m.Gate != nil {
				select {
				case <-m.Gate:
				case <-ctx.Done():
					return
				}
			}
			ev.RequestID = req.ID()
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// MockProviderFactory is a mock implementation of ProviderFactory for testing
type MockProviderFactory struct {
	mu      sync.Mutex
	created []*MockProvider

	CreateFn func(settings *domain.ProviderSettings) (driven.Provider, error)
}

// NewMockProviderFactory creates a new MockProviderFactory
func NewMockProviderFactory() *MockProviderFactory {
	return &MockProviderFactory{}
}

// CreateProvider returns a text-capable MockProvider for every configured settings entry
func (f *MockProviderFactory) CreateProvider(settings *domain.ProviderSettings) (driven.Provider, error) {
	if f.CreateFn != nil {
		return f.CreateFn(settings)
	}
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	p := NewMockProvider(settings.Provider, domain.CapText|domain.CapImage)
	f.mu.Lock()
	f.created = append(f.created, p)
	f.mu.Unlock()
	return p, nil
}

// Created returns the providers created so far (for test assertions).
func (f *MockProviderFactory) Created() []*MockProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockProvider(nil), f.created...)
}
