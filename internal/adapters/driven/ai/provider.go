package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// Default generation limits shared by the providers
const (
	defaultMaxTokens = 2048
	defaultImageSize = "1024x1024"
)

// prompt returns the rendered user prompt, which every action provides
func prompt(req *domain.Request) (string, error) {
	p := strings.TrimSpace(req.Input(domain.InputPrompt))
	if p == "" {
		return "", fmt.Errorf("%w: request %s has no prompt", domain.ErrInvalidInput, req.ID())
	}
	return p, nil
}

// modelFor returns the per-request model override or the fallback
func modelFor(req *domain.Request, fallback string) string {
	if m := strings.TrimSpace(req.Option(domain.OptionModel)); m != "" {
		return m
	}
	return fallback
}

// temperature parses the temperature option
func temperature(req *domain.Request) (float64, bool) {
	raw := req.Option(domain.OptionTemperature)
	if raw == "" {
		return 0, false
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t < 0 || t > 2 {
		return 0, false
	}
	return t, true
}

// imageSize returns the requested image size or the default
func imageSize(req *domain.Request) string {
	if s := req.Option(domain.OptionImageSize); s != "" {
		return s
	}
	return defaultImageSize
}

func textArtifact(text string) domain.Artifact {
	return domain.Artifact{
		ID:       uuid.New().String(),
		Modality: domain.ModalityText,
		MIMEType: "text/plain",
		Text:     text,
	}
}

func imageArtifact(mimeType string, data []byte) domain.Artifact {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return domain.Artifact{
		ID:       uuid.New().String(),
		Modality: domain.ModalityImage,
		MIMEType: mimeType,
		Data:     data,
	}
}

// send delivers ev unless ctx is done first
func send(ctx context.Context, ch chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// finishStream sends the terminal event for a stream that ended with err.
// A cancelled stream closes without one.
func finishStream(ctx context.Context, ch chan<- domain.StreamEvent, reqID string, usage domain.Usage, err error) {
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		send(ctx, ch, domain.StreamEvent{Kind: domain.StreamFailed, RequestID: reqID, Error: err.Error()})
		return
	}
	send(ctx, ch, domain.StreamEvent{Kind: domain.StreamCompleted, RequestID: reqID, Usage: &usage})
}
