package domain

import (
	"testing"
	"time"
)

func TestRequestIsImmutable(t *testing.T) {
	inputs := map[string]string{"tone": "formal"}
	modalities := []Modality{ModalityText}
	req := NewRequest("req-1", ActionTone, modalities, RequestContext{SectionID: "s-1"}, inputs, nil)

	inputs["tone"] = "casual"
	modalities[0] = ModalityImage
	if req.Input("tone") != "formal" {
		t.Errorf("request should copy inputs, got %q", req.Input("tone"))
	}
	if req.Needs(ModalityImage) {
		t.Error("request should copy modalities")
	}

	got := req.Inputs()
	got["tone"] = "angry"
	if req.Input("tone") != "formal" {
		t.Error("Inputs() should return a copy")
	}
	if req.Options() == nil {
		t.Error("Options() should never be nil")
	}
}

func TestRequestPrimaryModality(t *testing.T) {
	tests := []struct {
		name       string
		modalities []Modality
		expected   Modality
	}{
		{"text", []Modality{ModalityText}, ModalityText},
		{"image", []Modality{ModalityImage}, ModalityImage},
		{"both prefers image", []Modality{ModalityText, ModalityImage}, ModalityImage},
		{"none defaults to text", nil, ModalityText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("r", ActionRewrite, tt.modalities, RequestContext{}, nil, nil)
			if got := req.PrimaryModality(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSelection(t *testing.T) {
	s := Selection{Start: 3, Length: 4}
	if s.End() != 7 {
		t.Errorf("expected end 7, got %d", s.End())
	}
	if !s.Valid() {
		t.Error("expected valid selection")
	}
	if (Selection{Start: -1}).Valid() {
		t.Error("negative start is invalid")
	}
}

func TestResultFirstArtifacts(t *testing.T) {
	res := &Result{Artifacts: []Artifact{
		{ID: "a", Modality: ModalityImage},
		{ID: "b", Modality: ModalityText, Text: "hello"},
		{ID: "c", Modality: ModalityText, Text: "second"},
	}}

	if a, ok := res.FirstText(); !ok || a.ID != "b" {
		t.Errorf("expected b, got %+v", a)
	}
	if a, ok := res.FirstImage(); !ok || a.ID != "a" {
		t.Errorf("expected a, got %+v", a)
	}
	if _, ok := (&Result{}).FirstText(); ok {
		t.Error("empty result has no text")
	}
}

func TestPlanHas(t *testing.T) {
	plan := &Plan{Capabilities: []PlanCapability{CapabilityAIEnabled}}
	if !plan.Has(CapabilityAIEnabled) {
		t.Error("expected ai_enabled")
	}
	if plan.Has(CapabilityAICoverImage) {
		t.Error("did not expect ai_cover_image")
	}
	var none *Plan
	if none.Has(CapabilityAIEnabled) {
		t.Error("nil plan grants nothing")
	}
}

func TestPeriodStarts(t *testing.T) {
	at := time.Date(2026, 3, 17, 15, 4, 5, 0, time.UTC)
	if got := MonthStart(at); !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month start %v", got)
	}
	if got := DayStart(at); !got.Equal(time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day start %v", got)
	}
}
