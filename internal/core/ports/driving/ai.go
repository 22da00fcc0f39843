package driving

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// ActionInput is the raw input of one AI action invocation
type ActionInput struct {
	Auth       *domain.AuthContext `json:"-"`
	DocumentID string              `json:"document_id"`
	SectionID  string              `json:"section_id"`
	Selection  domain.Selection    `json:"selection"`
	Inputs     map[string]string   `json:"inputs,omitempty"`  // tone, instruction, ...
	Options    map[string]string   `json:"options,omitempty"` // model, ...
}

// ActionOutcome is the batch result of an action.
// Exactly one of Proposal and Failure is set.
type ActionOutcome struct {
	Proposal   *domain.Proposal  `json:"proposal,omitempty"`
	Failure    *domain.Failure   `json:"failure,omitempty"`
	ProviderID domain.ProviderID `json:"provider_id,omitempty"`
	Usage      *domain.Usage     `json:"usage,omitempty"`
}

// Succeeded reports whether the outcome carries a proposal
func (o *ActionOutcome) Succeeded() bool {
	return o != nil && o.Failure == nil && o.Proposal != nil
}

// ActionStream is a running streamed action.
// Events is closed after the terminal event; Wait resolves exactly once,
// independently of whether Events is drained.
type ActionStream interface {
	// Events returns the event sequence
	Events() <-chan domain.StreamEvent

	// Wait blocks until the stream is terminal. A cancelled stream resolves
	// with a nil proposal and context.Canceled.
	Wait(ctx context.Context) (*domain.Proposal, error)

	// Cancel stops the stream and releases it. Callers that stop reading
	// Events early must call it.
	Cancel()
}

// ActionInfo describes a catalog action for clients
type ActionInfo struct {
	ID          domain.ActionID   `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Modalities  []domain.Modality `json:"modalities"`
	Inputs      []string          `json:"inputs,omitempty"`
}

// AIService runs AI actions against documents
type AIService interface {
	// ExecuteAction runs an action on the batch path.
	// Policy denials are returned as ActionOutcome.Failure, provider
	// failures as *domain.ProviderError.
	ExecuteAction(ctx context.Context, actionID domain.ActionID, input ActionInput) (*ActionOutcome, error)

	// StreamAction evaluates routing and policy synchronously, then streams.
	// Errors before the gate, such as a missing document, are returned directly.
	StreamAction(ctx context.Context, actionID domain.ActionID, input ActionInput) (ActionStream, *domain.Failure, error)

	// Actions lists the action catalog
	Actions() []ActionInfo

	// Providers lists the registered providers
	Providers() []domain.ProviderInfo
}
