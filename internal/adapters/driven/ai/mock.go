package ai

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Ensure MockProvider implements StreamingProvider
var _ driven.StreamingProvider = (*MockProvider)(nil)

// MockProvider is a local, unmetered provider for development.
// It echoes the selection back and paints placeholder images.
type MockProvider struct {
	model string
	delay time.Duration // Pause between streamed words
}

// NewMockProvider creates a mock provider
func NewMockProvider(model string, delay time.Duration) *MockProvider {
	if model == "" {
		model = "mock-1"
	}
	return &MockProvider{model: model, delay: delay}
}

// Descriptor returns the provider's identity and capabilities
func (p *MockProvider) Descriptor() domain.ProviderDescriptor {
	return domain.ProviderDescriptor{
		ID:           domain.ProviderMock,
		Name:         "Mock",
		Model:        p.model,
		ImageModel:   p.model,
		Capabilities: domain.CapText | domain.CapImage | domain.CapTextStreaming,
	}
}

// Execute answers immediately
func (p *MockProvider) Execute(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PrimaryModality() == domain.ModalityImage {
		data, err := placeholderPNG(req.ID())
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			RequestID: req.ID(),
			Artifacts: []domain.Artifact{imageArtifact("image/png", data)},
			Usage:     domain.Usage{Model: p.model},
		}, nil
	}

	text := p.answer(req)
	return &domain.Result{
		RequestID: req.ID(),
		Artifacts: []domain.Artifact{textArtifact(text)},
		Usage:     p.usage(req, text),
	}, nil
}

// Stream sends the answer word by word
func (p *MockProvider) Stream(ctx context.Context, req *domain.Request) (<-chan domain.StreamEvent, error) {
	if req.PrimaryModality() == domain.ModalityImage {
		return nil, fmt.Errorf("%w: mock does not stream images", domain.ErrInvalidInput)
	}
	text := p.answer(req)

	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamStarted, RequestID: req.ID()}) {
			return
		}
		words := strings.SplitAfter(text, " ")
		for _, w := range words {
			if p.delay > 0 {
				select {
				case <-time.After(p.delay):
				case <-ctx.Done():
					return
				}
			}
			if !send(ctx, ch, domain.StreamEvent{Kind: domain.StreamTextDelta, RequestID: req.ID(), Text: w}) {
				return
			}
		}
		finishStream(ctx, ch, req.ID(), p.usage(req, text), nil)
	}()
	return ch, nil
}

// answer echoes the selection, or the paragraph when nothing is selected
func (p *MockProvider) answer(req *domain.Request) string {
	rc := req.Context()
	source := strings.TrimSpace(rc.SelectionText)
	if source == "" {
		source = strings.TrimSpace(rc.Paragraph)
	}
	if source == "" {
		source = rc.DocumentTitle
	}
	if instr := req.Input("instruction"); instr != "" {
		return fmt.Sprintf("%s (%s)", source, instr)
	}
	if tone := req.Input("tone"); tone != "" {
		return fmt.Sprintf("%s, said %s", source, tone)
	}
	return source
}

// usage estimates four characters per token
func (p *MockProvider) usage(req *domain.Request, text string) domain.Usage {
	in := utf8.RuneCountInString(req.Input(domain.InputPrompt)) + utf8.RuneCountInString(req.Input(domain.InputSystem))
	return domain.Usage{
		InputTokens:  int64(in/4 + 1),
		OutputTokens: int64(utf8.RuneCountInString(text)/4 + 1),
		Model:        p.model,
	}
}

// Ping always succeeds
func (p *MockProvider) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources held by the provider
func (p *MockProvider) Close() error {
	return nil
}

// placeholderPNG paints a 64x96 cover tinted by the seed
func placeholderPNG(seed string) ([]byte, error) {
	var h uint32 = 2166136261
	for i := 0; i < len(seed); i++ {
		h = (h ^ uint32(seed[i])) * 16777619
	}
	tint := color.RGBA{R: uint8(h), G: uint8(h >> 8), B: uint8(h >> 16), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, 64, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 64; x++ {
			c := tint
			if y > 60 {
				c = color.RGBA{R: tint.R / 2, G: tint.G / 2, B: tint.B / 2, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
