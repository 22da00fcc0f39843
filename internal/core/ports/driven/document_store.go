package driven

import (
	"context"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Get retrieves a document with its chapters, sections and artifacts
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error
}

// HistoryLog is the external log of applied AI proposals
type HistoryLog interface {
	// Append stores an entry
	Append(ctx context.Context, entry *domain.HistoryEntry) error

	// List returns the newest entries of a document, newest first
	List(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error)
}

// ArtifactStore holds generated artifacts between proposal and apply
type ArtifactStore interface {
	// Put stores an artifact
	Put(ctx context.Context, artifact domain.StoredArtifact) error

	// Get retrieves an artifact. Returns domain.ErrNotFound once expired.
	Get(ctx context.Context, id string) (domain.StoredArtifact, error)

	// Delete removes an artifact
	Delete(ctx context.Context, id string) error
}
