package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure AnthropicProvider implements StreamingProvider
var _ driven.StreamingProvider = (*AnthropicProvider)(nil)

const anthropicDefaultModel = "claude-3-5-haiku-latest"

// AnthropicProvider serves text and streaming text through the Messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates an Anthropic provider
func NewAnthropicProvider(apiKey, model, baseURL string, opts ...option.RequestOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = anthropicDefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(120 * time.Second),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Descriptor returns the provider's identity and capabilities
func (p *AnthropicProvider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:           domain.ProviderAnthropic,
		Name:         "Anthropic",
		Model:        p.model,
		Capabilities: domain.CapText | domain.CapTextStreaming | domain.CapRequiresEntitlement | domain.CapBillable,
	}
}

// Execute sends one message and collects the text blocks of the answer
func (p *AnthropicProvider) Execute(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	params, err := p.messageParams(req)
	if err != nil {
		return nil, err
	}
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}

	return &domain.Result{
		RequestID: req.ID(),
		Artifacts: []domain.Artifact{textArtifact(text.String())},
		Usage: domain.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
			Model:        string(msg.Model),
		},
		Metadata: map[string]string{"stop_reason": string(msg.StopReason)},
	}, nil
}

// Stream streams a message as text deltas
func (p *AnthropicProvider) Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error) {
	params, err := p.messageParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		defer stream.Close()

		usage := domain.Usage{Model: p.model}
		started := false
		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.InputTokens = ev.Message.Usage.InputTokens
				if ev.Message.Model != "" {
					usage.Model = string(ev.Message.Model)
				}
				if !started {
					started = true
					if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamStarted, RequestID: req.ID()}) {
						return
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: req.ID(), Text: delta.Text}) {
					return
				}
			case anthropic.MessageDeltaEvent:
				usage.OutputTokens = ev.Usage.OutputTokens
			}
		}
		finishStream(ctx, ch, req.ID(), usage, stream.Err())
	}()
	return ch, nil
}

func (p *AnthropicProvider) messageParams(req *domain.Request) (anthropic.MessageNewParams, error) {
	if req.PrimaryModality() == domain.ModalityImage {
		return anthropic.MessageNewParams{}, fmt.Errorf("%w: anthropic does not generate images", domain.ErrInvalidInput)
	}
	user, err := prompt(req)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelFor(req, p.model)),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system := req.Input(domain.InputSystem); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if t, ok := temperature(req); ok {
		params.Temperature = anthropic.Float(min(t, 1))
	}
	return params, nil
}

// Ping lists models to verify the key
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	return nil
}

// Close releases resources held by the provider
func (p *AnthropicProvider) Close() error {
	return nil
}
