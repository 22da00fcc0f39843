package driving

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// EditResult is the document state after an editing operation
type EditResult struct {
	Document *domain.Document `json:"document"`
	GroupID  string           `json:"group_id,omitempty"`
	Commands int              `json:"commands"` // Commands run or reverted
	CanUndo  bool             `json:"can_undo"`
	CanRedo  bool             `json:"can_redo"`
}

// EditingService applies reviewed proposals and manages undo history
type EditingService interface {
	// ApplyProposal executes a proposal as one edit group and records a history entry
	ApplyProposal(ctx context.Context, documentID string, proposal *domain.Proposal) (*EditResult, error)

	// Undo reverses the most recent command
	Undo(ctx context.Context, documentID string) (*EditResult, error)

	// Redo re-applies the most recently undone command
	Redo(ctx context.Context, documentID string) (*EditResult, error)

	// RollbackGroup reverses every command of an edit group
	RollbackGroup(ctx context.Context, documentID, sectionID, groupID string) (*EditResult, error)

	// ReapplyGroup re-executes a rolled back edit group
	ReapplyGroup(ctx context.Context, documentID, sectionID, groupID string) (*EditResult, error)

	// History returns the newest applied proposals, newest first
	History(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error)
}
