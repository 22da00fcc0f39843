package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
)

var (
	_ driven.DocumentStore = (*MockDocumentStore)(nil)
	_ driven.HistoryLog    = (*MockHistoryLog)(nil)
	_ driven.ArtifactStore = (*MockArtifactStore)(nil)
)

// MockDocumentStore is a mock implementation of DocumentStore for testing.
// Documents are deep-copied on the way in and out, like a real store.
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string][]byte
	saves     int

	SaveFn func(doc *domain.Document) error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string][]byte),
	}
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(doc); err != nil {
			return err
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = data
	m.saves++
	return nil
}

// Saves returns how many times Save was called (for test assertions).
func (m *MockDocumentStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// MockHistoryLog is a mock implementation of HistoryLog for testing
type MockHistoryLog struct {
	mu      sync.RWMutex
	entries []*domain.HistoryEntry
}

// NewMockHistoryLog creates a new MockHistoryLog
func NewMockHistoryLog() *MockHistoryLog {
	return &MockHistoryLog{}
}

func (m *MockHistoryLog) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	m.entries = append(m.entries, &e)
	return nil
}

func (m *MockHistoryLog) List(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.HistoryEntry
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppliedAt.After(out[j].AppliedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockArtifactStore is a mock implementation of ArtifactStore for testing
type MockArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]domain.StoredArtifact

	PutFn func(artifact domain.StoredArtifact) error
}

// NewMockArtifactStore creates a new MockArtifactStore
func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{
		artifacts: make(map[string]domain.StoredArtifact),
	}
}

func (m *MockArtifactStore) Put(ctx context.Context, artifact domain.StoredArtifact) error {
	if m.PutFn != nil {
		return m.PutFn(artifact)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[artifact.ID] = artifact
	return nil
}

func (m *MockArtifactStore) Get(ctx context.Context, id string) (domain.StoredArtifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[id]
	if !ok {
		return domain.StoredArtifact{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *MockArtifactStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, id)
	return nil
}

// Len returns the number of stored artifacts (for test assertions).
func (m *MockArtifactStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}
