package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure GeminiProvider implements StreamingProvider
var _ driven.StreamingProvider = (*GeminiProvider)(nil)

const (
	geminiDefaultModel      = "gemini-2.5-flash"
	geminiDefaultImageModel = "gemini-2.5-flash-image"
)

// GeminiProvider serves text and images through the Gemini API.
// Both modalities stream.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	imageModel string
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, model, imageModel, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = geminiDefaultModel
	}
	if imageModel == "" {
		imageModel = geminiDefaultImageModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client:     client,
		model:      model,
		imageModel: imageModel,
	}, nil
}

// Descriptor returns the provider's identity and capabilities
func (p *GeminiProvider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:         domain.ProviderGemini,
		Name:       "Gemini",
		Model:      p.model,
		ImageModel: p.imageModel,
		Capabilities: domain.CapText | domain.CapImage | domain.CapTextStreaming | domain.CapImageStreaming |
			domain.CapRequiresEntitlement | domain.CapBillable,
	}
}

// Execute generates content and returns its text and inline images
func (p *GeminiProvider) Execute(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	model, contents, cfg, err := p.generateArgs(req)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var (
		text      strings.Builder
		artifacts []domain.Artifact
	)
	for _, part := range parts(resp) {
		switch {
		case part.InlineData != nil && len(part.InlineData.Data) > 0:
			artifacts = append(artifacts, imageArtifact(part.InlineData.MIMEType, part.InlineData.Data))
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	if text.Len() > 0 {
		artifacts = append([]domain.Artifact{textArtifact(text.String())}, artifacts...)
	}
	if len(artifacts) == 0 {
		return nil, errors.New("gemini: empty response")
	}

	return &domain.Result{
		RequestID: req.ID(),
		Artifacts: artifacts,
		Usage:     usageOf(resp, model),
	}, nil
}

// Stream streams text parts as deltas and inline images as image deltas
func (p *GeminiProvider) Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error) {
	model, contents, cfg, err := p.generateArgs(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)

		if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamStarted, RequestID: req.ID()}) {
			return
		}
		usage := domain.Usage{Model: model}
		var streamErr error
		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				streamErr = err
				break
			}
			if resp.UsageMetadata != nil {
				usage = usageOf(resp, model)
			}
			for _, part := range parts(resp) {
				ev := domain.StreamEvent{RequestID: req.ID()}
				switch {
				case part.InlineData != nil && len(part.InlineData.Data) > 0:
					img := imageArtifact(part.InlineData.MIMEType, part.InlineData.Data)
					ev.Kind, ev.Image = domain.StreamImageDelta, &img
				case part.Text != "" && !part.Thought:
					ev.Kind, ev.Text = domain.StreamTextDelta, part.Text
				default:
					continue
				}
				if !send(ctx, ch, ev) {
					return
				}
			}
		}
		finishStream(ctx, ch, req.ID(), usage, streamErr)
	}()
	return ch, nil
}

func (p *GeminiProvider) generateArgs(req *domain.Request) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	user, err := prompt(req)
	if err != nil {
		return "", nil, nil, err
	}

	cfg := &genai.GenerateContentConfig{MaxOutputTokens: defaultMaxTokens}
	model := modelFor(req, p.model)
	if req.PrimaryModality() == domain.ModalityImage {
		model = modelFor(req, p.imageModel)
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
		cfg.MaxOutputTokens = 0
	}
	if system := req.Input(domain.InputSystem); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if t, ok := temperature(req); ok {
		cfg.Temperature = genai.Ptr(float32(t))
	}

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	return model, contents, cfg, nil
}

// parts returns the parts of the first candidate
func parts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func usageOf(resp *genai.GenerateContentResponse, model string) domain.Usage {
	u := domain.Usage{Model: model}
	if resp.ModelVersion != "" {
		u.Model = resp.ModelVersion
	}
	if m := resp.UsageMetadata; m != nil {
		u.InputTokens = int64(m.PromptTokenCount)
		u.OutputTokens = int64(m.CandidatesTokenCount)
	}
	return u
}

// Ping fetches the configured model to verify the key
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// Close releases resources held by the provider
func (p *GeminiProvider) Close() error {
	return nil
}
