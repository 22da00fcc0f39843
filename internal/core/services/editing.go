package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quill-core/internal/core/domain"
	"github.com/custodia-labs/quill-core/internal/core/ports/driven"
	"github.com/custodia-labs/quill-core/internal/core/ports/driving"
	"github.com/custodia-labs/quill-core/internal/editing"
)

// Ensure editingService implements EditingService
var _ driving.EditingService = (*editingService)(nil)

// editSession is the in-memory undo history of one document.
// version is the UpdatedAt of the last document this session loaded or saved.
type editSession struct {
	mu       sync.Mutex
	proc     *editing.Processor
	version  time.Time
	lastUsed time.Time
}

// editingService applies proposals through a per-document command processor.
// Processors live in memory so undo history survives between requests; the
// document is saved after every change. A session whose document was saved
// elsewhere is discarded and rebuilt from the store.
type editingService struct {
	documents   driven.DocumentStore
	history     driven.HistoryLog
	artifacts   driven.ArtifactStore
	lock        driven.DistributedLock
	catalog     *editing.FieldCatalog
	logger      *slog.Logger
	lockTTL     time.Duration
	sessionIdle time.Duration
	maxEntries  int

	mu       sync.Mutex
	sessions map[string]*editSession
}

// EditingServiceConfig holds configuration for the editing service
type EditingServiceConfig struct {
	Documents  driven.DocumentStore
	History    driven.HistoryLog
	Artifacts  driven.ArtifactStore
	Lock       driven.DistributedLock // Optional: one writer per document across instances
	Catalog    *editing.FieldCatalog  // Optional: defaults to the built-in field catalog
	Logger     *slog.Logger
	LockTTL    time.Duration // Lease per operation (default: 30s)
	MaxEntries int           // Undo history cap (default: editing.DefaultMaxEntries)

	// SessionIdle evicts undo histories unused for this long (default: 30m)
	SessionIdle time.Duration
}

// NewEditingService creates a new EditingService
func NewEditingService(cfg EditingServiceConfig) driving.EditingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = editing.NewFieldCatalog()
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 30 * time.Second
	}
	sessionIdle := cfg.SessionIdle
	if sessionIdle == 0 {
		sessionIdle = 30 * time.Minute
	}
	return &editingService{
		documents:   cfg.Documents,
		history:     cfg.History,
		artifacts:   cfg.Artifacts,
		lock:        cfg.Lock,
		catalog:     catalog,
		logger:      logger,
		lockTTL:     lockTTL,
		sessionIdle: sessionIdle,
		maxEntries:  cfg.MaxEntries,
		sessions:    make(map[string]*editSession),
	}
}

// ApplyProposal executes a proposal as one edit group
func (s *editingService) ApplyProposal(ctx context.Context, documentID string, proposal *domain.Proposal) (*driving.EditResult, error) {
	if proposal == nil {
		return nil, fmt.Errorf("%w: proposal required", domain.ErrInvalidInput)
	}

	var (
		result *driving.EditResult
		before string
	)
	err := s.withSession(ctx, documentID, func(sess *editSession) error {
		proc := sess.proc
		doc := proc.Document()
		section := doc.FindSection(proposal.SectionID)
		if section == nil {
			return fmt.Errorf("%w: %s", domain.ErrSectionNotFound, proposal.SectionID)
		}
		before = historyText(doc, section, proposal)

		group := domain.EditGroup{
			ID:        uuid.New().String(),
			SectionID: proposal.SectionID,
			CreatedAt: time.Now(),
			Reason:    string(proposal.ActionID),
		}
		lookup := func(id string) (domain.StoredArtifact, error) {
			return s.artifacts.Get(ctx, id)
		}
		cmds, err := editing.CommandsFromProposal(proposal, group, s.catalog, lookup)
		if err != nil {
			return err
		}
		if err := proc.ExecuteGroup(group, cmds...); err != nil {
			return err
		}
		if err := s.save(ctx, sess, func() error {
			_, err := proc.RollbackGroup(group.SectionID, group.ID)
			return err
		}); err != nil {
			return err
		}

		entry := &domain.HistoryEntry{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			SectionID:  proposal.SectionID,
			GroupID:    group.ID,
			ActionID:   proposal.ActionID,
			ProviderID: proposal.ProviderID,
			Summary:    proposal.Summary,
			Before:     before,
			After:      historyText(doc, section, proposal),
			AppliedAt:  time.Now(),
		}
		if err := s.history.Append(ctx, entry); err != nil {
			s.logger.Error("failed to append history entry", "document_id", documentID, "group_id", group.ID, "error", err)
		}

		for _, id := range proposal.ArtifactIDs {
			if err := s.artifacts.Delete(ctx, id); err != nil {
				s.logger.Warn("failed to delete pending artifact", "artifact_id", id, "error", err)
			}
		}

		result = s.result(proc, group.ID, len(cmds))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("proposal applied",
		"document_id", documentID,
		"proposal_id", proposal.ID,
		"group_id", result.GroupID,
		"commands", result.Commands)
	return result, nil
}

// Undo reverses the most recent command
func (s *editingService) Undo(ctx context.Context, documentID string) (*driving.EditResult, error) {
	var result *driving.EditResult
	err := s.withSession(ctx, documentID, func(sess *editSession) error {
		proc := sess.proc
		if err := proc.Undo(); err != nil {
			return err
		}
		if err := s.save(ctx, sess, proc.Redo); err != nil {
			return err
		}
		result = s.result(proc, "", 1)
		return nil
	})
	return result, err
}

// Redo re-applies the most recently undone command
func (s *editingService) Redo(ctx context.Context, documentID string) (*driving.EditResult, error) {
	var result *driving.EditResult
	err := s.withSession(ctx, documentID, func(sess *editSession) error {
		proc := sess.proc
		if err := proc.Redo(); err != nil {
			return err
		}
		if err := s.save(ctx, sess, proc.Undo); err != nil {
			return err
		}
		result = s.result(proc, "", 1)
		return nil
	})
	return result, err
}

// RollbackGroup reverses every command of an edit group
func (s *editingService) RollbackGroup(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
	var result *driving.EditResult
	err := s.withSession(ctx, documentID, func(sess *editSession) error {
		proc := sess.proc
		n, err := proc.RollbackGroup(sectionID, groupID)
		if err != nil {
			return err
		}
		if err := s.save(ctx, sess, func() error {
			_, err := proc.ReapplyGroup(sectionID, groupID)
			return err
		}); err != nil {
			return err
		}
		result = s.result(proc, groupID, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("edit group rolled back", "document_id", documentID, "group_id", groupID, "commands", result.Commands)
	return result, nil
}

// ReapplyGroup re-executes a rolled back edit group
func (s *editingService) ReapplyGroup(ctx context.Context, documentID, sectionID, groupID string) (*driving.EditResult, error) {
	var result *driving.EditResult
	err := s.withSession(ctx, documentID, func(sess *editSession) error {
		proc := sess.proc
		n, err := proc.ReapplyGroup(sectionID, groupID)
		if err != nil {
			return err
		}
		if err := s.save(ctx, sess, func() error {
			_, err := proc.RollbackGroup(sectionID, groupID)
			return err
		}); err != nil {
			return err
		}
		result = s.result(proc, groupID, n)
		return nil
	})
	return result, err
}

// History returns the newest applied proposals
func (s *editingService) History(ctx context.Context, documentID string, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.history.List(ctx, documentID, limit)
}

// withSession runs fn with the document's session while holding the
// document lease and the session lock. The stored document is read on every
// call; when it changed since the session last saw it, the undo history is
// dropped and rebuilt from the stored copy.
func (s *editingService) withSession(ctx context.Context, documentID string, fn func(*editSession) error) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}

	if s.lock != nil {
		name := "document:" + documentID
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire document lock: %w", err)
		}
		if !acquired {
			return domain.ErrDocumentLocked
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
				s.logger.Warn("failed to release document lock", "document_id", documentID, "error", err)
			}
		}()
	}

	sess := s.session(documentID, time.Now())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		if sess.proc == nil {
			s.mu.Lock()
			if s.sessions[documentID] == sess {
				delete(s.sessions, documentID)
			}
			s.mu.Unlock()
		}
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	if sess.proc == nil || !sess.version.Equal(doc.UpdatedAt) {
		if sess.proc != nil {
			s.logger.Info("document changed elsewhere, undo history reset", "document_id", documentID)
		}
		sess.proc = editing.NewProcessor(doc, s.maxEntries)
		sess.version = doc.UpdatedAt
	}
	return fn(sess)
}

// session returns the document's session and evicts idle ones
func (s *editingService) session(documentID string, now time.Time) *editSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if id != documentID && now.Sub(sess.lastUsed) > s.sessionIdle {
			delete(s.sessions, id)
		}
	}

	sess, ok := s.sessions[documentID]
	if !ok {
		sess = &editSession{}
		s.sessions[documentID] = sess
	}
	sess.lastUsed = now
	return sess
}

// save persists the session's document. When the store refuses it, revert
// undoes the in-memory change so the session matches the store again.
func (s *editingService) save(ctx context.Context, sess *editSession, revert func() error) error {
	doc := sess.proc.Document()
	// Stores keep microseconds; the version must still move forward.
	version := time.Now().UTC().Truncate(time.Microsecond)
	if !version.After(sess.version) {
		version = sess.version.Add(time.Microsecond)
	}
	doc.UpdatedAt = version
	if err := s.documents.Save(ctx, doc); err != nil {
		if rerr := revert(); rerr != nil {
			s.logger.Error("failed to revert unsaved edit", "document_id", doc.ID, "error", rerr)
		}
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	sess.version = doc.UpdatedAt
	return nil
}

// historyText is the text a history entry records: the field value for
// field proposals, the section markup otherwise.
func historyText(doc *domain.Document, section *domain.Section, proposal *domain.Proposal) string {
	for _, op := range proposal.Operations {
		if f, ok := op.(domain.ReplaceFieldOp); ok {
			return doc.Fields[f.Key]
		}
	}
	return section.Content
}

func (s *editingService) result(proc *editing.Processor, groupID string, n int) *driving.EditResult {
	return &driving.EditResult{
		Document: proc.Document().Clone(),
		GroupID:  groupID,
		Commands: n,
		CanUndo:  proc.CanUndo(),
		CanRedo:  proc.CanRedo(),
	}
}
