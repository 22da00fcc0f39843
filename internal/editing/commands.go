package editing

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/richtext"
)

// RoleCover is the artifact role that sets a section's cover image
const RoleCover = "cover"

// ReplaceRangeCommand replaces a plain-text range of a section's markup.
type ReplaceRangeCommand struct {
	Stamp
	Start  int
	Length int
	Text   string

	previous string
	whole    bool
}

// NewReplaceRangeCommand creates a range replacement
func NewReplaceRangeCommand(stamp Stamp, start, length int, text string) *ReplaceRangeCommand {
	return &ReplaceRangeCommand{Stamp: stamp, Start: start, Length: length, Text: text}
}

// Execute splices the encoded text over the mapped range.
// When the range cannot be mapped the whole content is replaced.
func (c *ReplaceRangeCommand) Execute(doc *domain.Document) error {
	if err := c.beginExecute(); err != nil {
		return err
	}
	if c.Start < 0 || c.Length < 0 {
		return fmt.Errorf("%w: negative range (%d,%d)", domain.ErrInvalidInput, c.Start, c.Length)
	}
	sec, err := c.section(doc)
	if err != nil {
		return err
	}

	c.previous = sec.Content
	sec.Content, c.whole = richtext.Replace(sec.Content, c.Start, c.Length, c.Text)
	c.executed()
	return nil
}

// Undo restores the previous markup
func (c *ReplaceRangeCommand) Undo(doc *domain.Document) error {
	if err := c.beginUndo(); err != nil {
		return err
	}
	sec, err := c.section(doc)
	if err != nil {
		return err
	}
	sec.Content = c.previous
	c.undone()
	return nil
}

// ReplacedWhole reports whether the last execution fell back to the whole content
func (c *ReplaceRangeCommand) ReplacedWhole() bool {
	return c.whole
}

func (c *ReplaceRangeCommand) Description() string {
	return fmt.Sprintf("Replace %d chars at %d", c.Length, c.Start)
}

// ReplaceFieldCommand replaces a structured document field.
type ReplaceFieldCommand struct {
	Stamp
	Key   string
	Value string

	catalog  *FieldCatalog
	previous string
	existed  bool
}

// NewReplaceFieldCommand creates a field replacement validated against catalog
func NewReplaceFieldCommand(stamp Stamp, catalog *FieldCatalog, key, value string) *ReplaceFieldCommand {
	return &ReplaceFieldCommand{Stamp: stamp, catalog: catalog, Key: key, Value: value}
}

// Execute validates the key and value and stores the new value
func (c *ReplaceFieldCommand) Execute(doc *domain.Document) error {
	if err := c.beginExecute(); err != nil {
		return err
	}
	if err := c.catalog.Validate(c.Key, c.Value); err != nil {
		return err
	}
	if c.SectionID() != "" {
		if _, err := c.section(doc); err != nil {
			return err
		}
	}

	if doc.Fields == nil {
		doc.Fields = make(map[string]string)
	}
	c.previous, c.existed = doc.Fields[c.Key]
	doc.Fields[c.Key] = c.Value
	c.executed()
	return nil
}

// Undo restores the previous value, removing the key if it was absent
func (c *ReplaceFieldCommand) Undo(doc *domain.Document) error {
	if err := c.beginUndo(); err != nil {
		return err
	}
	if c.existed {
		doc.Fields[c.Key] = c.previous
	} else {
		delete(doc.Fields, c.Key)
	}
	c.undone()
	return nil
}

func (c *ReplaceFieldCommand) Description() string {
	return "Set " + c.Key
}

// AttachArtifactCommand stores an artifact in the document and attaches it
// to a section under a role.
type AttachArtifactCommand struct {
	Stamp
	Artifact domain.StoredArtifact
	Role     string

	prevArtifacts []domain.StoredArtifact
	prevCover     string
}

// NewAttachArtifactCommand creates an artifact attachment
func NewAttachArtifactCommand(stamp Stamp, artifact domain.StoredArtifact, role string) *AttachArtifactCommand {
	return &AttachArtifactCommand{Stamp: stamp, Artifact: artifact, Role: role}
}

// Execute adds the artifact once by id and points the section's cover at it
// when the role is cover
func (c *AttachArtifactCommand) Execute(doc *domain.Document) error {
	if err := c.beginExecute(); err != nil {
		return err
	}
	if c.Artifact.ID == "" {
		return fmt.Errorf("%w: artifact without id", domain.ErrInvalidInput)
	}
	sec, err := c.section(doc)
	if err != nil {
		return err
	}

	c.prevArtifacts = slices.Clone(doc.Artifacts)
	c.prevCover = sec.CoverArtifactID

	if _, ok := doc.FindArtifact(c.Artifact.ID); !ok {
		a := c.Artifact
		if a.Role == "" {
			a.Role = c.Role
		}
		doc.Artifacts = append(doc.Artifacts, a)
	}
	if c.Role == RoleCover {
		sec.CoverArtifactID = c.Artifact.ID
	}
	c.executed()
	return nil
}

// Undo restores the artifact list and cover reference snapshots
func (c *AttachArtifactCommand) Undo(doc *domain.Document) error {
	if err := c.beginUndo(); err != nil {
		return err
	}
	sec, err := c.section(doc)
	if err != nil {
		return err
	}
	doc.Artifacts = c.prevArtifacts
	sec.CoverArtifactID = c.prevCover
	c.undone()
	return nil
}

func (c *AttachArtifactCommand) Description() string {
	return fmt.Sprintf("Attach %s as %s", c.Artifact.ID, c.Role)
}

var (
	_ Command = (*ReplaceRangeCommand)(nil)
	_ Command = (*ReplaceFieldCommand)(nil)
	_ Command = (*AttachArtifactCommand)(nil)
)
