// Package editing applies reversible commands to a document and keeps the
// undo/redo stacks and per-section edit group provenance consistent.
//
// Commands snapshot the whole previous value of the field they change, so
// undo is a restore rather than an inverse diff.
package editing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// Command is a reversible mutation of a document.
type Command interface {
	// ID returns the command identity.
	ID() string

	// SectionID returns the section the command targets.
	SectionID() string

	// GroupID returns the owning edit group, empty for commands not produced by AI.
	GroupID() string

	// Reason returns the optional human reason of the edit.
	Reason() string

	// AppliedAt returns the instant of the first execution, zero before it.
	AppliedAt() time.Time

	// Applied reports whether the command's effect is currently in the document.
	Applied() bool

	// Execute performs the command.
	Execute(doc *domain.Document) error

	// Undo reverses the command. It fails before the command has been executed.
	Undo(doc *domain.Document) error

	// Description returns a human-readable description of the command.
	Description() string
}

// Stamp carries the identity and lifecycle state shared by all commands.
// Embed it and call begin/end from Execute and Undo.
type Stamp struct {
	id        string
	sectionID string
	groupID   string
	reason    string
	appliedAt time.Time
	applied   bool
}

// NewStamp creates a stamp with a fresh command id
func NewStamp(sectionID, groupID, reason string) Stamp {
	return Stamp{
		id:        uuid.NewString(),
		sectionID: sectionID,
		groupID:   groupID,
		reason:    reason,
	}
}

func (s *Stamp) ID() string           { return s.id }
func (s *Stamp) SectionID() string    { return s.sectionID }
func (s *Stamp) GroupID() string      { return s.groupID }
func (s *Stamp) Reason() string       { return s.reason }
func (s *Stamp) AppliedAt() time.Time { return s.appliedAt }
func (s *Stamp) Applied() bool        { return s.applied }

// beginExecute rejects double application
func (s *Stamp) beginExecute() error {
	if s.applied {
		return fmt.Errorf("%w: command %s already applied", domain.ErrInvalidInput, s.id)
	}
	return nil
}

// executed marks the command applied, stamping the first execution time once
func (s *Stamp) executed() {
	if s.appliedAt.IsZero() {
		s.appliedAt = time.Now().UTC()
	}
	s.applied = true
}

// beginUndo rejects undo of a command whose effect is not in the document
func (s *Stamp) beginUndo() error {
	if !s.applied {
		return fmt.Errorf("%w: %s", domain.ErrCommandNotExecuted, s.id)
	}
	return nil
}

func (s *Stamp) undone() {
	s.applied = false
}

// section resolves the stamp's target section
func (s *Stamp) section(doc *domain.Document) (*domain.Section, error) {
	sec := doc.FindSection(s.sectionID)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSectionNotFound, s.sectionID)
	}
	return sec, nil
}

// isAI reports whether a command belongs to an edit group
func isAI(cmd Command) bool {
	return cmd.GroupID() != ""
}
