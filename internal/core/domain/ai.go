package domain

import (
	"maps"
	"slices"
	"time"
)

// Modality is the kind of output a request needs from a provider
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// ActionID identifies a user-invokable AI action
type ActionID string

const (
	ActionRewrite       ActionID = "rewrite"
	ActionTone          ActionID = "tone"
	ActionCoverImage    ActionID = "cover_image"
	ActionSynopsisCoach ActionID = "synopsis_coach"
)

// Request inputs every action renders
const (
	InputPrompt = "prompt"
	InputSystem = "system"
)

// Request options understood by providers
const (
	OptionModel            = "model"
	OptionImageSize        = "image_size"
	OptionTemperature      = "temperature"
	OptionRequireStreaming = "require_streaming"
)

// Selection is a plain-text range inside a section
type Selection struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// End returns the exclusive end offset
func (s Selection) End() int {
	return s.Start + s.Length
}

// Valid reports whether the range is non-negative
func (s Selection) Valid() bool {
	return s.Start >= 0 && s.Length >= 0
}

// RequestContext is the document context a request is built from
type RequestContext struct {
	DocumentID    string    `json:"document_id"`
	SectionID     string    `json:"section_id"`
	Selection     Selection `json:"selection"`
	SelectionText string    `json:"selection_text"`
	DocumentTitle string    `json:"document_title"`
	Language      string    `json:"language,omitempty"`
	Paragraph     string    `json:"paragraph,omitempty"` // Surrounding paragraph
	Before        string    `json:"before,omitempty"`
	After         string    `json:"after,omitempty"`
}

// Request is an immutable provider request. Build it with NewRequest.
type Request struct {
	id         string
	actionID   ActionID
	modalities []Modality
	context    RequestContext
	inputs     map[string]string
	options    map[string]string
}

// NewRequest builds a Request, copying every mutable argument
func NewRequest(id string, action ActionID, modalities []Modality, rc RequestContext, inputs, options map[string]string) *Request {
	return &Request{
		id:         id,
		actionID:   action,
		modalities: slices.Clone(modalities),
		context:    rc,
		inputs:     cloneMap(inputs),
		options:    cloneMap(options),
	}
}

// ID returns the request identity
func (r *Request) ID() string { return r.id }

// ActionID returns the action the request was built for
func (r *Request) ActionID() ActionID { return r.actionID }

// Context returns the document context
func (r *Request) Context() RequestContext { return r.context }

// Modalities returns a copy of the required modalities
func (r *Request) Modalities() []Modality { return slices.Clone(r.modalities) }

// Inputs returns a copy of the named inputs
func (r *Request) Inputs() map[string]string { return cloneMap(r.inputs) }

// Options returns a copy of the routing/provider options
func (r *Request) Options() map[string]string { return cloneMap(r.options) }

// Input returns a named input, or "" when absent
func (r *Request) Input(name string) string {
	return r.inputs[name]
}

// Option returns a routing/provider option, or "" when absent
func (r *Request) Option(name string) string {
	return r.options[name]
}

// Needs reports whether the request requires the modality
func (r *Request) Needs(m Modality) bool {
	return slices.Contains(r.modalities, m)
}

// PrimaryModality returns image when requested, text otherwise
func (r *Request) PrimaryModality() Modality {
	if r.Needs(ModalityImage) {
		return ModalityImage
	}
	return ModalityText
}

// Artifact is one output produced by a provider
type Artifact struct {
	ID       string            `json:"id"`
	Modality Modality          `json:"modality"`
	MIMEType string            `json:"mime_type"`
	Text     string            `json:"text,omitempty"`
	Data     []byte            `json:"data,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Usage reports token consumption and latency for one provider call
type Usage struct {
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
	Model        string        `json:"model,omitempty"`
}

// Total returns input plus output tokens
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Result is a provider's answer to a Request
type Result struct {
	RequestID string            `json:"request_id"`
	Artifacts []Artifact        `json:"artifacts"`
	Usage     Usage             `json:"usage"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// FirstText returns the first text artifact
func (r *Result) FirstText() (Artifact, bool) {
	return r.first(ModalityText)
}

// FirstImage returns the first image artifact
func (r *Result) FirstImage() (Artifact, bool) {
	return r.first(ModalityImage)
}

func (r *Result) first(m Modality) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Modality == m {
			return a, true
		}
	}
	return Artifact{}, false
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
