package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/runtime"
)

// Router picks the provider that serves a request
type Router struct {
	providers *runtime.Providers
	logger    *slog.Logger
}

// NewRouter creates a router over the provider registry
func NewRouter(providers *runtime.Providers, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{providers: providers, logger: logger}
}

// Route selects a provider for req.
// The preferred provider for the request's modality wins when it is
// registered and supports the modality. Otherwise, with fallback allowed,
// the first registered provider supporting the modality (and streaming, when
// required) is used.
func (r *Router) Route(req *domain.Request, settings *domain.AISettings, requireStreaming bool) (driven.Provider, error) {
	modality := req.PrimaryModality()
	preferred := settings.PreferredProvider(modality)

	if preferred != "" {
		if p, ok := r.providers.Get(preferred); ok && p.Descriptor().Capabilities.Supports(modality) {
			return p, nil
		}
		r.logger.Warn("preferred provider cannot serve request",
			"provider", preferred,
			"modality", modality,
			"action", req.ActionID())
	}

	if !settings.AllowFallback {
		return nil, fmt.Errorf("%w: %q cannot serve %s", domain.ErrProviderUnavailable, preferred, modality)
	}

	for _, p := range r.providers.All() {
		caps := p.Descriptor().Capabilities
		if !caps.Supports(modality) {
			continue
		}
		if requireStreaming && !caps.SupportsStreaming(modality) {
			continue
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNoProviderMatched, modality)
}

// routeFailure maps a routing error to its failure code
func routeFailure(err error) *domain.Failure {
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable):
		return domain.NewFailure(domain.CodeProviderUnavailable, err.Error())
	case errors.Is(err, domain.ErrNoProviderMatched):
		return domain.NewFailure(domain.CodeProviderMissing, err.Error())
	default:
		return domain.NewFailure(domain.CodeBlocked, err.Error())
	}
}
