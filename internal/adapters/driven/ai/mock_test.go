package ai

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

func TestMockProvider_Descriptor(t *testing.T) {
	desc := NewMockProvider("", 0).Descriptor()
	if desc.ID != domain.ProviderMock {
		t.Errorf("expected mock id, got %s", desc.ID)
	}
	if desc.Capabilities.RequiresEntitlement() || desc.Capabilities.Billable() {
		t.Error("mock provider must be unmetered")
	}
	if desc.Model != "mock-1" {
		t.Errorf("expected default model, got %s", desc.Model)
	}
}

func TestMockProvider_ExecuteText(t *testing.T) {
	p := NewMockProvider("", 0)

	tests := []struct {
		name   string
		inputs map[string]string
		want   string
	}{
		{name: "echo", inputs: map[string]string{domain.InputPrompt: "p"}, want: "Hello"},
		{name: "instruction", inputs: map[string]string{domain.InputPrompt: "p", "instruction": "shorter"}, want: "Hello (shorter)"},
		{name: "tone", inputs: map[string]string{domain.InputPrompt: "p", "tone": "wryly"}, want: "Hello, said wryly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Execute(context.Background(), textRequest(tt.inputs, nil))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			text, _ := res.FirstText()
			if text.Text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, text.Text)
			}
			if res.Usage.OutputTokens == 0 {
				t.Error("expected estimated usage")
			}
		})
	}
}

func TestMockProvider_ExecuteImage(t *testing.T) {
	res, err := NewMockProvider("", 0).Execute(context.Background(), imageRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, ok := res.FirstImage()
	if !ok {
		t.Fatal("expected image artifact")
	}
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("placeholder is not a PNG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 64 || b.Dy() != 96 {
		t.Errorf("unexpected placeholder size %v", b)
	}
}

func TestMockProvider_Stream(t *testing.T) {
	p := NewMockProvider("", 0)
	req := textRequest(map[string]string{domain.InputPrompt: "p", "instruction": "make it sing"}, nil)

	ch, err := p.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := drain(t, ch)
	if events[0].Kind != domain.StreamStarted || events[len(events)-1].Kind != domain.StreamCompleted {
		t.Fatalf("unexpected event sequence %+v", events)
	}

	var text strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		if ev.Kind != domain.StreamTextDelta {
			t.Errorf("expected delta, got %s", ev.Kind)
		}
		text.WriteString(ev.Text)
	}
	if text.String() != "Hello (make it sing)" {
		t.Errorf("deltas should concatenate to the answer, got %q", text.String())
	}
}

func TestMockProvider_StreamCancel(t *testing.T) {
	p := NewMockProvider("", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := p.Stream(ctx, textRequest(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := <-ch; ev.Kind != domain.StreamStarted {
		t.Fatalf("expected started, got %s", ev.Kind)
	}
	cancel()

	events := drain(t, ch)
	if len(events) != 0 {
		t.Errorf("expected channel to close without further events, got %+v", events)
	}
}
