package domain

import "strings"

// ProviderID identifies an AI provider in the registry
type ProviderID string

const (
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGemini    ProviderID = "gemini"
	ProviderMock      ProviderID = "mock"
)

// IsValid returns true if this is a known provider
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider requires an API key
func (p ProviderID) RequiresAPIKey() bool {
	switch p {
	case ProviderMock:
		return false // Local, unmetered
	default:
		return true
	}
}

// ProviderCapabilities is the closed set of flags a provider advertises
type ProviderCapabilities uint8

const (
	CapText ProviderCapabilities = 1 << iota
	CapImage
	CapTextStreaming
	CapImageStreaming
	CapRequiresEntitlement
	CapBillable
)

var capabilityNames = []struct {
	flag ProviderCapabilities
	name string
}{
	{CapText, "text"},
	{CapImage, "image"},
	{CapTextStreaming, "text_streaming"},
	{CapImageStreaming, "image_streaming"},
	{CapRequiresEntitlement, "requires_entitlement"},
	{CapBillable, "billable"},
}

// Has reports whether every flag in f is set
func (c ProviderCapabilities) Has(f ProviderCapabilities) bool {
	return c&f == f
}

// Supports reports whether the provider can produce the modality
func (c ProviderCapabilities) Supports(m Modality) bool {
	switch m {
	case ModalityText:
		return c.Has(CapText)
	case ModalityImage:
		return c.Has(CapImage)
	default:
		return false
	}
}

// SupportsStreaming reports whether the provider can stream the modality
func (c ProviderCapabilities) SupportsStreaming(m Modality) bool {
	switch m {
	case ModalityText:
		return c.Has(CapText | CapTextStreaming)
	case ModalityImage:
		return c.Has(CapImage | CapImageStreaming)
	default:
		return false
	}
}

// RequiresEntitlement reports whether callers need a plan to use the provider
func (c ProviderCapabilities) RequiresEntitlement() bool {
	return c.Has(CapRequiresEntitlement)
}

// Billable reports whether usage against the provider is recorded
func (c ProviderCapabilities) Billable() bool {
	return c.Has(CapBillable)
}

// Names returns the set flags in declaration order
func (c ProviderCapabilities) Names() []string {
	var out []string
	for _, n := range capabilityNames {
		if c.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

func (c ProviderCapabilities) String() string {
	return strings.Join(c.Names(), "|")
}

// ProviderDescriptor describes a registered provider
type ProviderDescriptor struct {
	ID           ProviderID           `json:"id"`
	Name         string               `json:"name"`
	Model        string               `json:"model,omitempty"`
	ImageModel   string               `json:"image_model,omitempty"`
	Capabilities ProviderCapabilities `json:"-"`
}

// ProviderInfo is the API view of a registered provider
type ProviderInfo struct {
	ID           ProviderID `json:"id"`
	Name         string     `json:"name"`
	Model        string     `json:"model,omitempty"`
	Capabilities []string   `json:"capabilities"`
}

// Info returns the API view of the descriptor
func (d ProviderDescriptor) Info() ProviderInfo {
	return ProviderInfo{
		ID:           d.ID,
		Name:         d.Name,
		Model:        d.Model,
		Capabilities: d.Capabilities.Names(),
	}
}
