package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.DocumentStore = (*DocumentStore)(nil)
	_ driven.HistoryLog    = (*HistoryLog)(nil)
)

// DocumentStore implements driven.DocumentStore using PostgreSQL.
// The chapter tree is stored as JSONB; artifacts live in their own table.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, title, language, chapters, fields, updated_at
		FROM documents
		WHERE id = $1
	`

	var doc domain.Document
	var chaptersJSON, fieldsJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Language,
		&chaptersJSON,
		&fieldsJSON,
		&doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := json.Unmarshal(chaptersJSON, &doc.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}

	artifacts, err := s.getArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Artifacts = artifacts

	return &doc, nil
}

func (s *DocumentStore) getArtifacts(ctx context.Context, documentID string) ([]domain.StoredArtifact, error) {
	query := `
		SELECT id, mime_type, data, role, created_at
		FROM document_artifacts
		WHERE document_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.StoredArtifact
	for rows.Next() {
		var a domain.StoredArtifact
		if err := rows.Scan(&a.ID, &a.MIMEType, &a.Data, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// Save creates or updates a document together with its artifacts
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	chapters := doc.Chapters
	if chapters == nil {
		chapters = []*domain.Chapter{}
	}
	chaptersJSON, err := json.Marshal(chapters)
	if err != nil {
		return err
	}
	fields := doc.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	doc.UpdatedAt = doc.UpdatedAt.UTC().Truncate(time.Microsecond)

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO documents (id, title, language, chapters, fields, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				language = EXCLUDED.language,
				chapters = EXCLUDED.chapters,
				fields = EXCLUDED.fields,
				updated_at = EXCLUDED.updated_at
		`

		_, err := tx.ExecContext(ctx, query,
			doc.ID,
			doc.Title,
			doc.Language,
			chaptersJSON,
			fieldsJSON,
			doc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save document: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM document_artifacts WHERE document_id = $1`, doc.ID); err != nil {
			return fmt.Errorf("clear artifacts: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_artifacts (id, document_id, mime_type, data, role, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range doc.Artifacts {
			if _, err := stmt.ExecContext(ctx, a.ID, doc.ID, a.MIMEType, a.Data, a.Role, a.CreatedAt); err != nil {
				return fmt.Errorf("save artifact %s: %w", a.ID, err)
			}
		}

		return nil
	})
}

// HistoryLog implements driven.HistoryLog using PostgreSQL
type HistoryLog struct {
	db *DB
}

// NewHistoryLog creates a new HistoryLog
func NewHistoryLog(db *DB) *HistoryLog {
	return &HistoryLog{db: db}
}

// Append stores a history entry
func (l *HistoryLog) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	query := `
		INSERT INTO history_entries (id, document_id, section_id, group_id, action_id, provider_id, summary, before, after, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := l.db.ExecContext(ctx, query,
		entry.ID,
		entry.DocumentID,
		entry.SectionID,
		entry.GroupID,
		string(entry.ActionID),
		string(entry.ProviderID),
		entry.Summary,
		entry.Before,
		entry.After,
		entry.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns the newest entries of a document, newest first
func (l *HistoryLog) List(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, document_id, section_id, group_id, action_id, provider_id, summary, before, after, applied_at
		FROM history_entries
		WHERE document_id = $1
		ORDER BY applied_at DESC
		LIMIT $2
	`

	rows, err := l.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var actionID, providerID string
		err := rows.Scan(
			&e.ID,
			&e.DocumentID,
			&e.SectionID,
			&e.GroupID,
			&actionID,
			&providerID,
			&e.Summary,
			&e.Before,
			&e.After,
			&e.AppliedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ActionID = domain.ActionID(actionID)
		e.ProviderID = domain.ProviderID(providerID)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
