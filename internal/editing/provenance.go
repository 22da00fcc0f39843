package editing

import (
	"slices"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// recordProvenance appends cmd to its group's entry on the section,
// creating the entry on the group's first command.
func recordProvenance(sec *domain.Section, cmd Command) {
	entry := sec.ProvenanceFor(cmd.GroupID())
	if entry == nil {
		sec.Provenance = append(sec.Provenance, domain.ProvenanceEntry{
			GroupID:   cmd.GroupID(),
			AppliedAt: cmd.AppliedAt(),
			Reason:    cmd.Reason(),
		})
		entry = &sec.Provenance[len(sec.Provenance)-1]
	}
	if !slices.Contains(entry.CommandIDs, cmd.ID()) {
		entry.CommandIDs = append(entry.CommandIDs, cmd.ID())
	}
	sec.LastModifiedByAI = true
}

// retractProvenance removes cmd from its group's entry, deleting the entry
// once it is empty.
func retractProvenance(sec *domain.Section, cmd Command) {
	entry := sec.ProvenanceFor(cmd.GroupID())
	if entry == nil {
		return
	}
	entry.CommandIDs = slices.DeleteFunc(entry.CommandIDs, func(id string) bool {
		return id == cmd.ID()
	})
	if len(entry.CommandIDs) == 0 {
		dropProvenance(sec, cmd.GroupID())
		return
	}
	sec.LastModifiedByAI = len(sec.Provenance) > 0
}

// dropProvenance removes a group's entry from the section
func dropProvenance(sec *domain.Section, groupID string) {
	sec.Provenance = slices.DeleteFunc(sec.Provenance, func(e domain.ProvenanceEntry) bool {
		return e.GroupID == groupID
	})
	sec.LastModifiedByAI = len(sec.Provenance) > 0
}
