package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Executor calls providers and tags their failures
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Execute runs req on provider. Provider failures are returned as
// *domain.ProviderError; cancellation is returned unwrapped.
func (e *Executor) Execute(ctx context.Context, provider driven.Provider, req *domain.Request) (*domain.Result, error) {
	id := provider.Descriptor().ID
	start := time.Now()

	res, err := provider.Execute(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}
		e.logger.Error("provider call failed",
			"provider", id,
			"action", req.ActionID(),
			"request_id", req.ID(),
			"error", err)
		var perr *domain.ProviderError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, domain.NewProviderError(id, err)
	}
	if res == nil {
		return nil, domain.NewProviderError(id, errors.New("empty result"))
	}

	if res.RequestID == "" {
		res.RequestID = req.ID()
	}
	if res.Usage.Latency == 0 {
		res.Usage.Latency = time.Since(start)
	}
	e.logger.Debug("provider call completed",
		"provider", id,
		"action", req.ActionID(),
		"request_id", req.ID(),
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
		"latency", res.Usage.Latency)
	return res, nil
}
