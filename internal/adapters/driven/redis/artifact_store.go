package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

const artifactPrefix = "quill:artifact:"

// DefaultArtifactTTL bounds how long a proposed artifact waits to be applied
const DefaultArtifactTTL = time.Hour

// ArtifactStore implements driven.ArtifactStore using Redis.
// Pending artifacts expire through Redis TTL.
type ArtifactStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewArtifactStore creates a new Redis-backed ArtifactStore
func NewArtifactStore(client redis.UniversalClient, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	return &ArtifactStore{client: client, ttl: ttl}
}

// Put stores an artifact with the store's TTL
func (s *ArtifactStore) Put(ctx context.Context, artifact domain.StoredArtifact) error {
	if artifact.ID == "" {
		return fmt.Errorf("%w: artifact id required", domain.ErrInvalidInput)
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now()
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	if err := s.client.Set(ctx, artifactPrefix+artifact.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put artifact %s: %w", artifact.ID, err)
	}
	return nil
}

// Get retrieves an artifact. Expired artifacts return domain.ErrNotFound.
func (s *ArtifactStore) Get(ctx context.Context, id string) (domain.StoredArtifact, error) {
	data, err := s.client.Get(ctx, artifactPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StoredArtifact{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StoredArtifact{}, fmt.Errorf("get artifact %s: %w", id, err)
	}

	var artifact domain.StoredArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return domain.StoredArtifact{}, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return artifact, nil
}

// Delete removes an artifact
func (s *ArtifactStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, artifactPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}
