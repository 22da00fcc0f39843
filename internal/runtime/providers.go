package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Providers holds the AI providers available to the router.
// Providers are kept in registration order; that order is the router's
// fallback order. They can be replaced at runtime when AI settings change.
// Thread-safe for concurrent access.
type Providers struct {
	mu sync.RWMutex

	order []domain.ProviderID
	byID  map[domain.ProviderID]driven.Provider
}

// NewProviders creates an empty registry
func NewProviders() *Providers {
	return &Providers{
		byID: make(map[domain.ProviderID]driven.Provider),
	}
}

// Register adds a provider. Registering an id twice is an error.
func (r *Providers) Register(p driven.Provider) error {
	id := p.Descriptor().ID
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: provider %s already registered", domain.ErrInvalidInput, id)
	}
	r.byID[id] = p
	r.order = append(r.order, id)
	return nil
}

// Replace swaps the provider with the same id, or appends it.
// Closes the old provider if present.
func (r *Providers) Replace(p driven.Provider) {
	id := p.Descriptor().ID
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byID[id]; exists {
		if old != p {
			_ = old.Close()
		}
	} else {
		r.order = append(r.order, id)
	}
	r.byID[id] = p
}

// Remove unregisters and closes a provider
func (r *Providers) Remove(id domain.ProviderID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.byID[id]
	if !exists {
		return
	}
	_ = old.Close()
	delete(r.byID, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a provider by id
func (r *Providers) Get(id domain.ProviderID) (driven.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// All returns the providers in registration order
func (r *Providers) All() []driven.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]driven.Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Descriptors returns the descriptors of all providers in registration order
func (r *Providers) Descriptors() []domain.ProviderDescriptor {
	all := r.All()
	out := make([]domain.ProviderDescriptor, len(all))
	for i, p := range all {
		out[i] = p.Descriptor()
	}
	return out
}

// Len returns the number of registered providers
func (r *Providers) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ValidateAndReplace pings a provider before swapping it in
func (r *Providers) ValidateAndReplace(ctx context.Context, p driven.Provider) error {
	if err := p.Ping(ctx); err != nil {
		_ = p.Close()
		return err
	}
	r.Replace(p)
	return nil
}

// Close shuts down all providers
func (r *Providers) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		_ = p.Close()
	}
	r.byID = make(map[domain.ProviderID]driven.Provider)
	r.order = nil
	return nil
}
