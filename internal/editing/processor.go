package editing

import (
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// DefaultMaxEntries caps the undo stack when no limit is given
const DefaultMaxEntries = 500

// Processor executes commands against one document and manages undo/redo.
//
// Two undo mechanisms coexist. Undo and Redo walk the global LIFO stacks.
// RollbackGroup and ReapplyGroup walk the log of every AI command ever
// executed, so a group can be rolled back after unrelated later edits.
// Stack entries whose effect was already reverted (or restored) through a
// group are dropped when they reach the top of the stack.
//
// A Processor is not safe for concurrent writers; callers hold one edit
// session per document. The mutex only keeps the stacks consistent for
// concurrent readers.
type Processor struct {
	mu sync.Mutex

	doc       *domain.Document
	undoStack []Command
	redoStack []Command

	// Every AI command in first-execution order
	aiLog  []Command
	logged map[string]bool

	observers  []func(*domain.Document)
	maxEntries int
}

// NewProcessor creates a processor for doc
func NewProcessor(doc *domain.Document, maxEntries int) *Processor {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Processor{
		doc:        doc,
		logged:     make(map[string]bool),
		maxEntries: maxEntries,
	}
}

// Document returns the document being edited
func (p *Processor) Document() *domain.Document {
	return p.doc
}

// OnChange registers an observer called after every document change
func (p *Processor) OnChange(fn func(*domain.Document)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Execute runs a command, pushes it to the undo stack and clears redo.
func (p *Processor) Execute(cmd Command) error {
	p.mu.Lock()
	if err := p.applyLocked(cmd); err != nil {
		p.mu.Unlock()
		return err
	}
	p.pushLocked(cmd)
	p.mu.Unlock()

	p.notify()
	return nil
}

// ExecuteGroup runs the commands of one edit group in order.
// Every command must belong to the group and its section. If a command
// fails, the ones already run are reverted and nothing is pushed.
func (p *Processor) ExecuteGroup(group domain.EditGroup, cmds ...Command) error {
	for _, cmd := range cmds {
		if cmd.GroupID() != group.ID || cmd.SectionID() != group.SectionID {
			return fmt.Errorf("%w: command %s (section %s, group %s) in group %s (section %s)",
				domain.ErrGroupMismatch, cmd.ID(), cmd.SectionID(), cmd.GroupID(), group.ID, group.SectionID)
		}
	}

	p.mu.Lock()
	for i, cmd := range cmds {
		if err := p.applyLocked(cmd); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = p.revertLocked(cmds[j])
			}
			p.mu.Unlock()
			return err
		}
	}
	for _, cmd := range cmds {
		p.pushLocked(cmd)
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

// Undo reverses the most recent still-applied command.
func (p *Processor) Undo() error {
	p.mu.Lock()
	for {
		if len(p.undoStack) == 0 {
			p.mu.Unlock()
			return domain.ErrNothingToUndo
		}
		cmd := p.undoStack[len(p.undoStack)-1]
		p.undoStack = p.undoStack[:len(p.undoStack)-1]
		if !cmd.Applied() {
			continue // reverted by a group rollback
		}
		if err := p.revertLocked(cmd); err != nil {
			p.undoStack = append(p.undoStack, cmd)
			p.mu.Unlock()
			return err
		}
		p.redoStack = append(p.redoStack, cmd)
		break
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

// Redo re-executes the most recently undone command.
func (p *Processor) Redo() error {
	p.mu.Lock()
	for {
		if len(p.redoStack) == 0 {
			p.mu.Unlock()
			return domain.ErrNothingToRedo
		}
		cmd := p.redoStack[len(p.redoStack)-1]
		p.redoStack = p.redoStack[:len(p.redoStack)-1]
		if cmd.Applied() {
			continue // restored by a group reapply
		}
		if err := p.applyLocked(cmd); err != nil {
			p.redoStack = append(p.redoStack, cmd)
			p.mu.Unlock()
			return err
		}
		p.undoStack = append(p.undoStack, cmd)
		break
	}
	p.mu.Unlock()

	p.notify()
	return nil
}

// RollbackGroup undoes every applied command of the group on the section,
// newest first, and removes the group's provenance entry. It returns the
// number of commands undone. Rolling back an already rolled back group is a
// no-op.
func (p *Processor) RollbackGroup(sectionID, groupID string) (int, error) {
	p.mu.Lock()
	matches := p.groupLocked(sectionID, groupID)
	if len(matches) == 0 {
		p.mu.Unlock()
		return 0, fmt.Errorf("%w: %s on section %s", domain.ErrGroupNotFound, groupID, sectionID)
	}

	n := 0
	for i := len(matches) - 1; i >= 0; i-- {
		cmd := matches[i]
		if !cmd.Applied() {
			continue
		}
		if err := p.revertLocked(cmd); err != nil {
			p.mu.Unlock()
			return n, fmt.Errorf("rollback group %s: %w", groupID, err)
		}
		n++
	}
	if sec := p.doc.FindSection(sectionID); sec != nil {
		dropProvenance(sec, groupID)
	}
	p.mu.Unlock()

	if n > 0 {
		p.notify()
	}
	return n, nil
}

// ReapplyGroup re-executes the group's rolled back commands in their
// original order and re-appends provenance. It returns the number of
// commands executed.
func (p *Processor) ReapplyGroup(sectionID, groupID string) (int, error) {
	p.mu.Lock()
	matches := p.groupLocked(sectionID, groupID)
	if len(matches) == 0 {
		p.mu.Unlock()
		return 0, fmt.Errorf("%w: %s on section %s", domain.ErrGroupNotFound, groupID, sectionID)
	}

	n := 0
	for _, cmd := range matches {
		if cmd.Applied() {
			continue
		}
		if err := p.applyLocked(cmd); err != nil {
			p.mu.Unlock()
			return n, fmt.Errorf("reapply group %s: %w", groupID, err)
		}
		n++
	}
	p.mu.Unlock()

	if n > 0 {
		p.notify()
	}
	return n, nil
}

// GroupCommands returns the AI commands of a group in execution order
func (p *Processor) GroupCommands(sectionID, groupID string) []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.groupLocked(sectionID, groupID)
}

// CanUndo returns true if undo is available.
func (p *Processor) CanUndo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (p *Processor) CanRedo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (p *Processor) UndoCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.undoStack)
}

// RedoCount returns the number of redo entries.
func (p *Processor) RedoCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.redoStack)
}

// MaxEntries returns the undo stack cap
func (p *Processor) MaxEntries() int {
	return p.maxEntries
}

// applyLocked executes cmd and records provenance and the AI log
func (p *Processor) applyLocked(cmd Command) error {
	if err := cmd.Execute(p.doc); err != nil {
		return err
	}
	if !isAI(cmd) {
		return nil
	}
	if !p.logged[cmd.ID()] {
		p.logged[cmd.ID()] = true
		p.aiLog = append(p.aiLog, cmd)
	}
	if sec := p.doc.FindSection(cmd.SectionID()); sec != nil {
		recordProvenance(sec, cmd)
	}
	return nil
}

// revertLocked undoes cmd and retracts its provenance
func (p *Processor) revertLocked(cmd Command) error {
	if err := cmd.Undo(p.doc); err != nil {
		return err
	}
	if !isAI(cmd) {
		return nil
	}
	if sec := p.doc.FindSection(cmd.SectionID()); sec != nil {
		retractProvenance(sec, cmd)
	}
	return nil
}

// pushLocked adds a command to the undo stack and clears redo
func (p *Processor) pushLocked(cmd Command) {
	p.undoStack = append(p.undoStack, cmd)
	p.redoStack = nil

	if len(p.undoStack) > p.maxEntries {
		excess := len(p.undoStack) - p.maxEntries
		p.undoStack = p.undoStack[excess:]
	}
}

func (p *Processor) groupLocked(sectionID, groupID string) []Command {
	var out []Command
	for _, cmd := range p.aiLog {
		if cmd.SectionID() == sectionID && cmd.GroupID() == groupID {
			out = append(out, cmd)
		}
	}
	return out
}

func (p *Processor) notify() {
	p.mu.Lock()
	observers := slices.Clone(p.observers)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(p.doc)
	}
}
