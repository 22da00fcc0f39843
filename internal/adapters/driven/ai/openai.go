package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure OpenAIProvider implements StreamingProvider
var _ driven.StreamingProvider = (*OpenAIProvider)(nil)

const (
	openAIDefaultModel      = "gpt-4o-mini"
	openAIDefaultImageModel = "dall-e-3"
)

// OpenAIProvider serves text, streaming text and images through the OpenAI API
type OpenAIProvider struct {
	client     openai.Client
	model      string
	imageModel string
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(apiKey, model, imageModel, baseURL string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openAIDefaultModel
	}
	if imageModel == "" {
		imageModel = openAIDefaultImageModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(120 * time.Second),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIProvider{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		imageModel: imageModel,
	}, nil
}

// Descriptor returns the provider's identity and capabilities
func (p *OpenAIProvider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:         domain.ProviderOpenAI,
		Name:       "OpenAI",
		Model:      p.model,
		ImageModel: p.imageModel,
		Capabilities: domain.CapText | domain.CapImage | domain.CapTextStreaming |
			domain.CapRequiresEntitlement | domain.CapBillable,
	}
}

// Execute runs a chat completion, or an image generation for image requests
func (p *OpenAIProvider) Execute(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	if req.PrimaryModality() == domain.ModalityImage {
		return p.generateImage(ctx, req)
	}

	params, err := p.chatParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}

	return &domain.Result{
		RequestID: req.ID(),
		Artifacts: []domain.Artifact{textArtifact(resp.Choices[0].Message.Content)},
		Usage: domain.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			Model:        resp.Model,
		},
		Metadata: map[string]string{"finish_reason": resp.Choices[0].FinishReason},
	}, nil
}

// Stream streams a chat completion. Image requests are not streamed.
func (p *OpenAIProvider) Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error) {
	if req.PrimaryModality() == domain.ModalityImage {
		return nil, fmt.Errorf("%w: openai does not stream images", domain.ErrInvalidInput)
	}
	params, err := p.chatParams(req)
	if err != nil {
		return nil, err
	}
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		defer stream.Close()

		if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamStarted, RequestID: req.ID()}) {
			return
		}
		usage := domain.Usage{Model: p.model}
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Model != "" {
				usage.Model = chunk.Model
			}
			if chunk.Usage.TotalTokens > 0 {
				usage.InputTokens = chunk.Usage.PromptTokens
				usage.OutputTokens = chunk.Usage.CompletionTokens
			}
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: req.ID(), Text: choice.Delta.Content}) {
					return
				}
			}
		}
		finishStream(ctx, ch, req.ID(), usage, stream.Err())
	}()
	return ch, nil
}

func (p *OpenAIProvider) chatParams(req *domain.Request) (openai.ChatCompletionNewParams, error) {
	user, err := prompt(req)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	var msgs []openai.ChatCompletionMessageParamUnion
	if system := req.Input(domain.InputSystem); system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(modelFor(req, p.model)),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(defaultMaxTokens),
	}
	if t, ok := temperature(req); ok {
		params.Temperature = openai.Float(t)
	}
	return params, nil
}

func (p *OpenAIProvider) generateImage(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	text, err := prompt(req)
	if err != nil {
		return nil, err
	}
	model := p.imageModel
	if m := req.Option(domain.OptionModel); m != "" {
		model = m
	}

	resp, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         text,
		Model:          openai.ImageModel(model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(imageSize(req)),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("openai: no image returned")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	result := &domain.Result{
		RequestID: req.ID(),
		Artifacts: []domain.Artifact{imageArtifact("image/png", data)},
		Usage:     domain.Usage{Model: model},
	}
	if revised := resp.Data[0].RevisedPrompt; revised != "" {
		result.Metadata = map[string]string{"revised_prompt": revised}
	}
	return result, nil
}

// Ping lists models to verify the key
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}

// Close releases resources held by the provider
func (p *OpenAIProvider) Close() error {
	return nil
}
