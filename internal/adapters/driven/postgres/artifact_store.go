package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore implements driven.ArtifactStore using PostgreSQL.
// Used for pending artifacts when Redis is not configured.
// Rows carry an expiry; expired rows read as not found and are purged on Put.
type ArtifactStore struct {
	db  *DB
	ttl time.Duration
}

// NewArtifactStore creates a new ArtifactStore with the given retention
func NewArtifactStore(db *DB, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ArtifactStore{db: db, ttl: ttl}
}

// Put stores an artifact until its retention elapses
func (s *ArtifactStore) Put(ctx context.Context, artifact domain.StoredArtifact) error {
	now := time.Now()
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = now
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_artifacts WHERE expires_at < $1`, now); err != nil {
		return fmt.Errorf("purge pending artifacts: %w", err)
	}

	query := `
		INSERT INTO pending_artifacts (id, mime_type, data, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			mime_type = EXCLUDED.mime_type,
			data = EXCLUDED.data,
			role = EXCLUDED.role,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		artifact.ID,
		artifact.MIMEType,
		artifact.Data,
		artifact.Role,
		artifact.CreatedAt,
		now.Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("put pending artifact: %w", err)
	}
	return nil
}

// Get retrieves an unexpired artifact
func (s *ArtifactStore) Get(ctx context.Context, id string) (domain.StoredArtifact, error) {
	query := `
		SELECT id, mime_type, data, role, created_at
		FROM pending_artifacts
		WHERE id = $1 AND expires_at >= $2
	`

	var a domain.StoredArtifact
	err := s.db.QueryRowContext(ctx, query, id, time.Now()).Scan(&a.ID, &a.MIMEType, &a.Data, &a.Role, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.StoredArtifact{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredArtifact{}, fmt.Errorf("get pending artifact: %w", err)
	}
	return a, nil
}

// Delete removes an artifact
func (s *ArtifactStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_artifacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pending artifact: %w", err)
	}
	return nil
}
