package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
	"github.com/custodia-labs/quill-core/internal/richtext"
)

//go:embed actions.yaml
var builtinActions []byte

// ExcerptRadius is how many runes of context around a selection go into a request
const ExcerptRadius = 600

// Output kinds an action maps its result to
const (
	OutputReplaceRange   = "replace_range"
	OutputReplaceField   = "replace_field"
	OutputAttachArtifact = "attach_artifact"
)

// Action is a catalog entry: it builds requests and maps results to proposals
type Action struct {
	ID          domain.ActionID   `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Modalities  []domain.Modality `yaml:"modalities"`
	Inputs      []string          `yaml:"inputs"`
	Required    []string          `yaml:"required"`
	Output      string            `yaml:"output"`
	Field       string            `yaml:"field"`  // replace_field target
	Format      string            `yaml:"format"` // "markdown" renders to HTML
	Role        string            `yaml:"role"`   // attach_artifact role
	System      string            `yaml:"system"`
	Prompt      string            `yaml:"prompt"`

	system *template.Template
	prompt *template.Template
}

// NeedsImage reports whether the action generates images
func (a *Action) NeedsImage() bool {
	return slices.Contains(a.Modalities, domain.ModalityImage)
}

// Info returns the client-facing description
func (a *Action) Info() driving.ActionInfo {
	return driving.ActionInfo{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Modalities:  slices.Clone(a.Modalities),
		Inputs:      slices.Clone(a.Inputs),
	}
}

// promptData is what prompt templates see
type promptData struct {
	Title        string
	SectionTitle string
	Language     string
	Selected     string
	Before       string
	After        string
	Paragraph    string
	Inputs       map[string]string
	Fields       map[string]string
}

// BuildRequest builds the provider request for input against doc
func (a *Action) BuildRequest(doc *domain.Document, input driving.ActionInput) (*domain.Request, error) {
	section := doc.FindSection(input.SectionID)
	if section == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, input.SectionID)
	}
	if !input.Selection.Valid() {
		return nil, fmt.Errorf("%w: negative selection", domain.ErrInvalidInput)
	}
	for _, name := range a.Required {
		if strings.TrimSpace(input.Inputs[name]) == "" {
			return nil, fmt.Errorf("%w: %s requires input %q", domain.ErrInvalidInput, a.ID, name)
		}
	}

	ex := richtext.ExcerptAt(section.Content, input.Selection.Start, input.Selection.Length, ExcerptRadius)
	data := promptData{
		Title:        doc.Title,
		SectionTitle: section.Title,
		Language:     doc.Language,
		Selected:     ex.Selected,
		Before:       ex.Before,
		After:        ex.After,
		Paragraph:    ex.Paragraph,
		Inputs:       input.Inputs,
		Fields:       doc.Fields,
	}
	if input.Selection.Length == 0 && a.Output == OutputReplaceRange {
		data.Selected = strings.TrimSpace(richtext.PlainText(section.Content))
	}

	inputs := make(map[string]string, len(input.Inputs)+2)
	for _, name := range a.Inputs {
		if v, ok := input.Inputs[name]; ok {
			inputs[name] = v
		}
	}
	var err error
	if inputs[domain.InputPrompt], err = render(a.prompt, data); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", a.ID, err)
	}
	if inputs[domain.InputSystem], err = render(a.system, data); err != nil {
		return nil, fmt.Errorf("render %s system prompt: %w", a.ID, err)
	}

	rc := domain.RequestContext{
		DocumentID:    doc.ID,
		SectionID:     section.ID,
		Selection:     input.Selection,
		SelectionText: ex.Selected,
		DocumentTitle: doc.Title,
		Language:      doc.Language,
		Paragraph:     ex.Paragraph,
		Before:        ex.Before,
		After:         ex.After,
	}
	return domain.NewRequest(uuid.New().String(), a.ID, a.Modalities, rc, inputs, input.Options), nil
}

// Proposal maps provider output to a proposal.
// text is the generated text, image the generated image (nil when none).
// Generated images are parked in artifacts until the proposal is applied.
func (a *Action) Proposal(ctx context.Context, artifacts driven.ArtifactStore, doc *domain.Document, req *domain.Request, providerID domain.ProviderID, text string, image *domain.Artifact) (*domain.Proposal, error) {
	rc := req.Context()
	p := &domain.Proposal{
		ID:          uuid.New().String(),
		SectionID:   rc.SectionID,
		ActionID:    a.ID,
		ProviderID:  providerID,
		RequestID:   req.ID(),
		CreatedAt:   time.Now(),
		Instruction: req.Input("instruction"),
	}

	switch a.Output {
	case OutputReplaceRange:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: empty text from provider", domain.ErrInvalidInput)
		}
		start, length := rc.Selection.Start, rc.Selection.Length
		if length == 0 {
			// No selection: the whole section is rewritten
			section := doc.FindSection(rc.SectionID)
			if section == nil {
				return nil, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, rc.SectionID)
			}
			plain := strings.TrimRight(richtext.PlainText(section.Content), " ")
			start, length = 0, len([]rune(plain))
		}
		p.Operations = []domain.Operation{domain.ReplaceRangeOp{
			SectionID: rc.SectionID,
			Start:     start,
			Length:    length,
			Text:      text,
		}}
		p.Summary = fmt.Sprintf("%s: replace %d characters", a.Name, length)

	case OutputReplaceField:
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: empty text from provider", domain.ErrInvalidInput)
		}
		value := text
		if a.Format == "markdown" {
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(text), &buf); err != nil {
				return nil, fmt.Errorf("render markdown: %w", err)
			}
			value = buf.String()
		}
		p.Operations = []domain.Operation{domain.ReplaceFieldOp{Key: a.Field, Value: value}}
		p.Summary = fmt.Sprintf("%s: update %s", a.Name, a.Field)

	case OutputAttachArtifact:
		if image == nil || len(image.Data) == 0 {
			return nil, fmt.Errorf("%w: no image from provider", domain.ErrInvalidInput)
		}
		stored := domain.StoredArtifact{
			ID:        uuid.New().String(),
			MIMEType:  image.MIMEType,
			Data:      image.Data,
			Role:      a.Role,
			CreatedAt: time.Now(),
		}
		if err := artifacts.Put(ctx, stored); err != nil {
			return nil, fmt.Errorf("store artifact: %w", err)
		}
		p.Operations = []domain.Operation{domain.AttachArtifactOp{
			SectionID:  rc.SectionID,
			ArtifactID: stored.ID,
			Role:       a.Role,
		}}
		p.ArtifactIDs = []string{stored.ID}
		p.Summary = fmt.Sprintf("%s: attach %s image", a.Name, a.Role)

	default:
		return nil, fmt.Errorf("%w: action %s has unknown output %q", domain.ErrInvalidInput, a.ID, a.Output)
	}
	return p, nil
}

// ProposalFromResult maps a batch result to a proposal
func (a *Action) ProposalFromResult(ctx context.Context, artifacts driven.ArtifactStore, doc *domain.Document, req *domain.Request, providerID domain.ProviderID, res *domain.Result) (*domain.Proposal, error) {
	var text string
	if t, ok := res.FirstText(); ok {
		text = t.Text
	}
	var image *domain.Artifact
	if img, ok := res.FirstImage(); ok {
		image = &img
	}
	return a.Proposal(ctx, artifacts, doc, req, providerID, text, image)
}

func render(t *template.Template, data promptData) (string, error) {
	if t == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// ActionCatalog is the set of available actions
type ActionCatalog struct {
	order   []domain.ActionID
	actions map[domain.ActionID]*Action
}

// LoadActionCatalog parses a YAML catalog
func LoadActionCatalog(data []byte) (*ActionCatalog, error) {
	var doc struct {
		Actions []*Action `yaml:"actions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse action catalog: %w", err)
	}

	c := &ActionCatalog{actions: make(map[domain.ActionID]*Action, len(doc.Actions))}
	for _, a := range doc.Actions {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: action without id", domain.ErrInvalidInput)
		}
		if _, dup := c.actions[a.ID]; dup {
			return nil, fmt.Errorf("%w: action %s defined twice", domain.ErrInvalidInput, a.ID)
		}
		if len(a.Modalities) == 0 {
			a.Modalities = []domain.Modality{domain.ModalityText}
		}
		switch a.Output {
		case OutputReplaceRange, OutputAttachArtifact:
		case OutputReplaceField:
			if a.Field == "" {
				return nil, fmt.Errorf("%w: action %s has no field", domain.ErrInvalidInput, a.ID)
			}
		default:
			return nil, fmt.Errorf("%w: action %s has unknown output %q", domain.ErrInvalidInput, a.ID, a.Output)
		}

		var err error
		if a.prompt, err = template.New(string(a.ID)).Parse(a.Prompt); err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", a.ID, err)
		}
		if a.System != "" {
			if a.system, err = template.New(string(a.ID) + "-system").Parse(a.System); err != nil {
				return nil, fmt.Errorf("parse %s system prompt: %w", a.ID, err)
			}
		}
		c.actions[a.ID] = a
		c.order = append(c.order, a.ID)
	}
	return c, nil
}

// DefaultActionCatalog returns the built-in catalog
func DefaultActionCatalog() *ActionCatalog {
	c, err := LoadActionCatalog(builtinActions)
	if err != nil {
		panic(err)
	}
	return c
}

// Get looks up an action
func (c *ActionCatalog) Get(id domain.ActionID) (*Action, bool) {
	a, ok := c.actions[id]
	return a, ok
}

// All returns the actions in catalog order
func (c *ActionCatalog) All() []*Action {
	out := make([]*Action, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.actions[id])
	}
	return out
}
