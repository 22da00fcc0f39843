package editing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

// ArtifactLookup resolves an artifact introduced by a proposal
type ArtifactLookup func(id string) (domain.StoredArtifact, error)

// CommandsFromProposal turns a proposal's operations into commands of one
// edit group. Range replacements are ordered by descending start so offsets
// taken from the unedited text stay valid while they are applied.
func CommandsFromProposal(p *domain.Proposal, group domain.EditGroup, catalog *FieldCatalog, lookup ArtifactLookup) ([]Command, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if group.SectionID != p.SectionID {
		return nil, fmt.Errorf("%w: group section %s, proposal section %s", domain.ErrGroupMismatch, group.SectionID, p.SectionID)
	}

	var ranges, rest []Command
	for _, op := range p.Operations {
		stamp := NewStamp(group.SectionID, group.ID, group.Reason)
		switch o := op.(type) {
		case domain.ReplaceRangeOp:
			ranges = append(ranges, NewReplaceRangeCommand(stamp, o.Start, o.Length, o.Text))
		case domain.ReplaceFieldOp:
			rest = append(rest, NewReplaceFieldCommand(stamp, catalog, o.Key, o.Value))
		case domain.AttachArtifactOp:
			if lookup == nil {
				return nil, fmt.Errorf("%w: no artifact source for %s", domain.ErrNotFound, o.ArtifactID)
			}
			artifact, err := lookup(o.ArtifactID)
			if err != nil {
				return nil, fmt.Errorf("resolve artifact %s: %w", o.ArtifactID, err)
			}
			rest = append(rest, NewAttachArtifactCommand(stamp, artifact, o.Role))
		default:
			return nil, fmt.Errorf("%w: operation %T", domain.ErrInvalidInput, op)
		}
	}

	slices.SortStableFunc(ranges, func(a, b Command) int {
		return cmp.Compare(b.(*ReplaceRangeCommand).Start, a.(*ReplaceRangeCommand).Start)
	})
	return append(ranges, rest...), nil
}
