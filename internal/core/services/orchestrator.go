package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
	"github.com/custodia-labs/quill-core/internal/runtime"
)

// Ensure Orchestrator implements AIService
var _ driving.AIService = (*Orchestrator)(nil)

// Orchestrator is the entry point for AI actions: it builds the request,
// routes it, gates it through the usage policy, runs it and turns the
// output into a proposal.
type Orchestrator struct {
	catalog   *ActionCatalog
	providers *runtime.Providers
	router    *Router
	policy    *UsagePolicy
	executor  *Executor
	settings  driven.AISettingsStore
	documents driven.DocumentStore
	artifacts driven.ArtifactStore
	usage     driven.UsageStore
	teamID    string
	logger    *slog.Logger
}

// OrchestratorConfig holds the orchestrator's collaborators
type OrchestratorConfig struct {
	Catalog   *ActionCatalog // Optional: defaults to the built-in catalog
	Providers *runtime.Providers
	Policy    *UsagePolicy
	Settings  driven.AISettingsStore
	Documents driven.DocumentStore
	Artifacts driven.ArtifactStore
	Usage     driven.UsageStore
	TeamID    string
	Logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultActionCatalog()
	}
	return &Orchestrator{
		catalog:   catalog,
		providers: cfg.Providers,
		router:    NewRouter(cfg.Providers, logger),
		policy:    cfg.Policy,
		executor:  NewExecutor(logger),
		settings:  cfg.Settings,
		documents: cfg.Documents,
		artifacts: cfg.Artifacts,
		usage:     cfg.Usage,
		teamID:    cfg.TeamID,
		logger:    logger,
	}
}

// Actions lists the catalog
func (o *Orchestrator) Actions() []driving.ActionInfo {
	all := o.catalog.All()
	out := make([]driving.ActionInfo, len(all))
	for i, a := range all {
		out[i] = a.Info()
	}
	return out
}

// Providers lists the registered providers
func (o *Orchestrator) Providers() []domain.ProviderInfo {
	descs := o.providers.Descriptors()
	out := make([]domain.ProviderInfo, len(descs))
	for i, d := range descs {
		out[i] = d.Info()
	}
	return out
}

// invocation is one gated action ready to run
type invocation struct {
	action   *Action
	doc      *domain.Document
	req      *domain.Request
	provider driven.Provider
	settings *domain.AISettings
	userID   string
}

// prepare resolves, builds, routes and gates an action.
// Policy and routing refusals come back as a Failure, everything else as an error.
func (o *Orchestrator) prepare(ctx context.Context, actionID domain.ActionID, input driving.ActionInput, streaming bool) (*invocation, *domain.Failure, error) {
	action, ok := o.catalog.Get(actionID)
	if !ok {
		o.logger.Warn("unknown action requested", "action", actionID)
		return nil, domain.NewFailure(domain.CodeActionMissing, fmt.Sprintf("unknown action %q", actionID)), nil
	}

	settings, err := o.loadSettings(ctx)
	if err != nil {
		o.logger.Error("failed to load AI settings", "error", err)
		return nil, domain.NewFailure(domain.CodeBlocked, "AI settings are unavailable"), nil
	}

	doc, err := o.documents.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load document %s: %w", input.DocumentID, err)
	}
	req, err := action.BuildRequest(doc, input)
	if err != nil {
		return nil, nil, err
	}

	requireStreaming := streaming && req.Option(domain.OptionRequireStreaming) == "true"
	provider, err := o.router.Route(req, settings, requireStreaming)
	if err != nil {
		o.logger.Warn("no provider for action", "action", actionID, "error", err)
		return nil, routeFailure(err), nil
	}

	decision := o.policy.Evaluate(ctx, input.Auth, provider.Descriptor(), action, settings)
	if !decision.Allowed {
		o.logger.Info("AI request denied",
			"action", actionID,
			"provider", provider.Descriptor().ID,
			"code", decision.Failure.Code)
		return nil, decision.Failure, nil
	}

	return &invocation{
		action:   action,
		doc:      doc,
		req:      req,
		provider: provider,
		settings: settings,
		userID:   decision.UserID,
	}, nil, nil
}

// loadSettings reads settings per call; a team without stored settings gets defaults
func (o *Orchestrator) loadSettings(ctx context.Context) (*domain.AISettings, error) {
	settings, err := o.settings.GetAISettings(ctx, o.teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultAISettings(o.teamID), nil
	}
	return settings, err
}

// ExecuteAction runs an action on the batch path
func (o *Orchestrator) ExecuteAction(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (*driving.ActionOutcome, error) {
	inv, failure, err := o.prepare(ctx, actionID, input, false)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return &driving.ActionOutcome{Failure: failure}, nil
	}

	proposal, usage, err := o.runBatch(ctx, inv)
	if err != nil {
		return nil, err
	}
	return &driving.ActionOutcome{
		Proposal:   proposal,
		ProviderID: inv.provider.Descriptor().ID,
		Usage:      usage,
	}, nil
}

// runBatch executes, maps and records usage
func (o *Orchestrator) runBatch(ctx context.Context, inv *invocation) (*domain.Proposal, *domain.Usage, error) {
	id := inv.provider.Descriptor().ID
	res, err := o.executor.Execute(ctx, inv.provider, inv.req)
	if err != nil {
		return nil, nil, err
	}
	proposal, err := inv.action.ProposalFromResult(ctx, o.artifacts, inv.doc, inv.req, id, res)
	if err != nil {
		return nil, nil, domain.NewProviderError(id, err)
	}
	o.recordUsage(ctx, inv, res.Usage)
	return proposal, &res.Usage, nil
}

// recordUsage stores a usage event for billable providers while AI is enabled
func (o *Orchestrator) recordUsage(ctx context.Context, inv *invocation, usage domain.Usage) {
	desc := inv.provider.Descriptor()
	if !desc.Capabilities.Billable() || !inv.settings.Enabled || inv.userID == "" {
		return
	}
	model := usage.Model
	if model == "" {
		model = desc.Model
	}
	event := &domain.UsageEvent{
		ID:            uuid.New().String(),
		UserID:        inv.userID,
		ProviderID:    desc.ID,
		Model:         model,
		ActionID:      inv.action.ID,
		InputTokens:   usage.InputTokens,
		OutputTokens:  usage.OutputTokens,
		CorrelationID: inv.req.ID(),
		CreatedAt:     time.Now(),
	}
	// Recording must not fail an answered request
	if err := o.usage.Record(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Error("failed to record usage", "user_id", inv.userID, "request_id", inv.req.ID(), "error", err)
	}
}

// StreamAction gates an action synchronously, then streams it.
// Refusals and setup errors are returned before any stream exists; errors
// after the gate arrive as a failed event and through Wait.
func (o *Orchestrator) StreamAction(ctx context.Context, actionID domain.ActionID, input driving.ActionInput) (driving.ActionStream, *domain.Failure, error) {
	inv, failure, err := o.prepare(ctx, actionID, input, true)
	if err != nil {
		return nil, nil, err
	}
	if failure != nil {
		return nil, failure, nil
	}

	h := newStreamHandle(ctx)
	modality := inv.req.PrimaryModality()
	sp, canStream := inv.provider.(driven.StreamingProvider)
	if canStream && inv.settings.StreamingEnabled && inv.provider.Descriptor().Capabilities.SupportsStreaming(modality) {
		go o.streamNative(h, inv, sp)
	} else {
		go o.streamSimulated(h, inv)
	}
	return h, nil, nil
}

// streamNative bridges a provider stream. Deltas are accumulated and the
// proposal is built from them when the provider completes.
func (o *Orchestrator) streamNative(h *StreamHandle, inv *invocation, sp driven.StreamingProvider) {
	ctx := h.ctx
	id := inv.provider.Descriptor().ID
	reqID := inv.req.ID()

	ch, err := sp.Stream(ctx, inv.req)
	if err != nil {
		o.failStream(h, inv, domain.NewProviderError(id, err))
		return
	}

	var (
		text    strings.Builder
		image   *domain.Artifact
		started bool
	)
	for {
		select {
		case <-ctx.Done():
			o.cancelStream(h, inv)
			return
		case ev, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					o.cancelStream(h, inv)
					return
				}
				o.failStream(h, inv, domain.NewProviderError(id, errors.New("stream ended without completion")))
				return
			}
			ev.RequestID = reqID

			switch ev.Kind {
			case domain.StreamStarted:
				if !started {
					started = true
					h.push(ev)
				}
			case domain.StreamTextDelta:
				text.WriteString(ev.Text)
				h.push(ev)
			case domain.StreamImageDelta:
				image = ev.Image
				h.push(ev)
			case domain.StreamCompleted:
				proposal, err := inv.action.Proposal(ctx, o.artifacts, inv.doc, inv.req, id, text.String(), image)
				if err != nil {
					o.failStream(h, inv, domain.NewProviderError(id, err))
					return
				}
				if ev.Usage != nil {
					o.recordUsage(ctx, inv, *ev.Usage)
				}
				ev.Proposal = proposal
				h.finish(ev, proposal, nil)
				return
			case domain.StreamFailed:
				o.failStream(h, inv, domain.NewProviderError(id, errors.New(ev.Error)))
				return
			case domain.StreamCancelled:
				o.cancelStream(h, inv)
				return
			}
		}
	}
}

// streamSimulated gives batch-only providers the streaming contract:
// started, one delta with the whole output, completed.
func (o *Orchestrator) streamSimulated(h *StreamHandle, inv *invocation) {
	ctx := h.ctx
	id := inv.provider.Descriptor().ID
	reqID := inv.req.ID()

	h.push(domain.StreamEvent{Kind: domain.StreamStarted, RequestID: reqID})

	res, err := o.executor.Execute(ctx, inv.provider, inv.req)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		o.cancelStream(h, inv)
		return
	}
	if err != nil {
		o.failStream(h, inv, err)
		return
	}

	if t, ok := res.FirstText(); ok {
		h.push(domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: reqID, Text: t.Text})
	}
	if img, ok := res.FirstImage(); ok {
		h.push(domain.StreamEvent{Kind: domain.StreamImageDelta, RequestID: reqID, Image: &img})
	}

	proposal, err := inv.action.ProposalFromResult(ctx, o.artifacts, inv.doc, inv.req, id, res)
	if err != nil {
		o.failStream(h, inv, domain.NewProviderError(id, err))
		return
	}
	o.recordUsage(ctx, inv, res.Usage)
	usage := res.Usage
	h.finish(domain.StreamEvent{Kind: domain.StreamCompleted, RequestID: reqID, Usage: &usage, Proposal: proposal}, proposal, nil)
}

func (o *Orchestrator) failStream(h *StreamHandle, inv *invocation, err error) {
	o.logger.Error("AI stream failed", "action", inv.action.ID, "request_id", inv.req.ID(), "error", err)
	h.finish(domain.StreamEvent{Kind: domain.StreamFailed, RequestID: inv.req.ID(), Error: err.Error()}, nil, err)
}

func (o *Orchestrator) cancelStream(h *StreamHandle, inv *invocation) {
	o.logger.Info("AI stream cancelled", "action", inv.action.ID, "request_id", inv.req.ID())
	h.finish(domain.StreamEvent{Kind: domain.StreamCancelled, RequestID: inv.req.ID()}, nil, context.Canceled)
}
