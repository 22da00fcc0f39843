package domain

import (
	"maps"
	"slices"
	"time"
)

// Document is a manuscript made of chapters and sections
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Language  string            `json:"language,omitempty"`
	Chapters  []*Chapter        `json:"chapters"`
	Artifacts []StoredArtifact  `json:"artifacts,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"` // Structured fields (synopsis, logline, ...)
	UpdatedAt time.Time         `json:"updated_at"`
}

// Chapter groups ordered sections
type Chapter struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Sections []*Section `json:"sections"`
}

// Section owns a single rich-markup content field plus its AI provenance
type Section struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"` // Rich markup (HTML)
	Notes            string            `json:"notes,omitempty"`
	CoverArtifactID  string            `json:"cover_artifact_id,omitempty"`
	LastModifiedByAI bool              `json:"last_modified_by_ai"`
	Provenance       []ProvenanceEntry `json:"provenance,omitempty"`
}

// ProvenanceEntry records which commands an edit group executed on a section
type ProvenanceEntry struct {
	GroupID    string    `json:"group_id"`
	AppliedAt  time.Time `json:"applied_at"`
	Reason     string    `json:"reason,omitempty"`
	CommandIDs []string  `json:"command_ids"`
}

// StoredArtifact is a binary artifact kept in the document (e.g. a cover image)
type StoredArtifact struct {
	ID        string    `json:"id"`
	MIMEType  string    `json:"mime_type"`
	Data      []byte    `json:"data"` // base64 in JSON
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EditGroup is one AI turn; every AI command belongs to exactly one group
type EditGroup struct {
	ID        string    `json:"id"`
	SectionID string    `json:"section_id"`
	CreatedAt time.Time `json:"created_at"`
	Reason    string    `json:"reason,omitempty"`
}

// FindSection locates a section by id. Section counts are small, a scan is fine.
func (d *Document) FindSection(id string) *Section {
	for _, ch := range d.Chapters {
		for _, s := range ch.Sections {
			if s.ID == id {
				return s
			}
		}
	}
	return nil
}

// Sections returns all sections in document order
func (d *Document) Sections() []*Section {
	var out []*Section
	for _, ch := range d.Chapters {
		out = append(out, ch.Sections...)
	}
	return out
}

// FindArtifact returns the stored artifact with the given id
func (d *Document) FindArtifact(id string) (StoredArtifact, bool) {
	for _, a := range d.Artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return StoredArtifact{}, false
}

// ProvenanceFor returns the section's entry for a group, or nil
func (s *Section) ProvenanceFor(groupID string) *ProvenanceEntry {
	for i := range s.Provenance {
		if s.Provenance[i].GroupID == groupID {
			return &s.Provenance[i]
		}
	}
	return nil
}

// HistoryEntry is the external log line written when a proposal is applied
type HistoryEntry struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	SectionID  string     `json:"section_id"`
	GroupID    string     `json:"group_id"`
	ActionID   ActionID   `json:"action_id"`
	ProviderID ProviderID `json:"provider_id"`
	Summary    string     `json:"summary"`
	Before     string     `json:"before"`
	After      string     `json:"after"`
	AppliedAt  time.Time  `json:"applied_at"`
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Chapters = make([]*Chapter, len(d.Chapters))
	for i, ch := range d.Chapters {
		c := *ch
		c.Sections = make([]*Section, len(ch.Sections))
		for j, s := range ch.Sections {
			sec := *s
			sec.Provenance = make([]ProvenanceEntry, len(s.Provenance))
			for k, p := range s.Provenance {
				p.CommandIDs = slices.Clone(p.CommandIDs)
				sec.Provenance[k] = p
			}
			c.Sections[j] = &sec
		}
		cp.Chapters[i] = &c
	}
	cp.Artifacts = slices.Clone(d.Artifacts)
	cp.Fields = maps.Clone(d.Fields)
	return &cp
}
