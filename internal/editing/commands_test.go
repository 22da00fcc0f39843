package editing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quill-core/internal/core/domain"
)

func TestFieldCatalogReflectsFieldSet(t *testing.T) {
	catalog := NewFieldCatalog()

	assert.Equal(t, []string{"synopsis", "synopsis_feedback", "logline", "genre", "audience", "tagline"}, catalog.Keys())

	f, ok := catalog.Lookup("logline")
	require.True(t, ok)
	assert.Equal(t, 300, f.MaxLength)
	assert.Equal(t, "One sentence pitch", f.Description)

	_, ok = catalog.Lookup("isbn")
	assert.False(t, ok)
}

func TestFieldCatalogValidate(t *testing.T) {
	catalog := NewFieldCatalog()

	assert.NoError(t, catalog.Validate("genre", "Literary fiction"))
	assert.ErrorIs(t, catalog.Validate("isbn", "978"), domain.ErrUnknownField)

	long := make([]rune, 301)
	for i := range long {
		long[i] = 'é'
	}
	assert.ErrorIs(t, catalog.Validate("logline", string(long)), domain.ErrInvalidInput)
	assert.NoError(t, catalog.Validate("logline", string(long[:300])))
}

func TestReplaceFieldCommand(t *testing.T) {
	doc := newDoc()
	doc.Fields = map[string]string{"logline": "old"}
	catalog := NewFieldCatalog()

	set := NewReplaceFieldCommand(NewStamp("s-1", "G", ""), catalog, "logline", "new")
	require.NoError(t, set.Execute(doc))
	assert.Equal(t, "new", doc.Fields["logline"])
	require.NoError(t, set.Undo(doc))
	assert.Equal(t, "old", doc.Fields["logline"])

	add := NewReplaceFieldCommand(NewStamp("s-1", "G", ""), catalog, "genre", "noir")
	require.NoError(t, add.Execute(doc))
	require.NoError(t, add.Undo(doc))
	_, present := doc.Fields["genre"]
	assert.False(t, present, "undo should remove a field that did not exist")
}

func TestReplaceFieldCommandUnknownKey(t *testing.T) {
	cmd := NewReplaceFieldCommand(NewStamp("s-1", "G", ""), NewFieldCatalog(), "isbn", "1")
	assert.ErrorIs(t, cmd.Execute(newDoc()), domain.ErrUnknownField)
	assert.False(t, cmd.Applied())
}

func TestAttachArtifactCommand(t *testing.T) {
	doc := newDoc()
	existing := domain.StoredArtifact{ID: "old", MIMEType: "image/png"}
	doc.Artifacts = []domain.StoredArtifact{existing}
	doc.FindSection("s-1").CoverArtifactID = "old"

	art := domain.StoredArtifact{ID: "cover-1", MIMEType: "image/png", Data: []byte{1, 2, 3}, CreatedAt: time.Now()}
	cmd := NewAttachArtifactCommand(NewStamp("s-1", "G", "cover"), art, RoleCover)
	require.NoError(t, cmd.Execute(doc))

	require.Len(t, doc.Artifacts, 2)
	assert.Equal(t, RoleCover, doc.Artifacts[1].Role)
	assert.Equal(t, "cover-1", doc.FindSection("s-1").CoverArtifactID)

	require.NoError(t, cmd.Undo(doc))
	assert.Equal(t, []domain.StoredArtifact{existing}, doc.Artifacts)
	assert.Equal(t, "old", doc.FindSection("s-1").CoverArtifactID)
}

func TestAttachArtifactIsIdempotentByID(t *testing.T) {
	doc := newDoc()
	art := domain.StoredArtifact{ID: "cover-1", MIMEType: "image/png"}
	doc.Artifacts = []domain.StoredArtifact{art}

	cmd := NewAttachArtifactCommand(NewStamp("s-2", "G", ""), art, RoleCover)
	require.NoError(t, cmd.Execute(doc))
	assert.Len(t, doc.Artifacts, 1)
	assert.Equal(t, "cover-1", doc.FindSection("s-2").CoverArtifactID)
}

func TestCommandsFromProposal(t *testing.T) {
	doc := newDoc()
	p := &domain.Proposal{
		ID:        "p-1",
		SectionID: "s-1",
		Operations: []domain.Operation{
			domain.ReplaceRangeOp{SectionID: "s-1", Start: 0, Length: 5, Text: "Goodbye"},
			domain.ReplaceRangeOp{SectionID: "s-1", Start: 6, Length: 5, Text: "moon"},
			domain.AttachArtifactOp{SectionID: "s-1", ArtifactID: "a-1", Role: RoleCover},
		},
	}
	group := domain.EditGroup{ID: "G", SectionID: "s-1", Reason: "rewrite"}
	lookup := func(id string) (domain.StoredArtifact, error) {
		return domain.StoredArtifact{ID: id, MIMEType: "image/png"}, nil
	}

	cmds, err := CommandsFromProposal(p, group, NewFieldCatalog(), lookup)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	for _, c := range cmds {
		assert.Equal(t, "G", c.GroupID())
		assert.Equal(t, "rewrite", c.Reason())
	}

	proc := NewProcessor(doc, 0)
	require.NoError(t, proc.ExecuteGroup(group, cmds...))
	assert.Equal(t, "<p>Goodbye moon</p>", doc.FindSection("s-1").Content)
	assert.Equal(t, "a-1", doc.FindSection("s-1").CoverArtifactID)
	assert.Len(t, doc.FindSection("s-1").Provenance[0].CommandIDs, 3)
}

func TestCommandsFromProposalRejectsOtherSection(t *testing.T) {
	p := &domain.Proposal{
		SectionID:  "s-1",
		Operations: []domain.Operation{domain.ReplaceFieldOp{Key: "genre", Value: "noir"}},
	}
	_, err := CommandsFromProposal(p, domain.EditGroup{ID: "G", SectionID: "s-2"}, NewFieldCatalog(), nil)
	assert.ErrorIs(t, err, domain.ErrGroupMismatch)
}

func TestCommandsFromProposalNeedsArtifactSource(t *testing.T) {
	p := &domain.Proposal{
		SectionID:  "s-1",
		Operations: []domain.Operation{domain.AttachArtifactOp{SectionID: "s-1", ArtifactID: "a-1"}},
	}
	_, err := CommandsFromProposal(p, domain.EditGroup{ID: "G", SectionID: "s-1"}, NewFieldCatalog(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
