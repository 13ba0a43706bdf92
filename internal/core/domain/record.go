package domain

import "strconv"

// RawRecord is one row of an insurer's tabular source, or one page of a PDF.
// Missing columns are absent keys rather than empty strings.
type RawRecord struct {
	// RowIndex is the zero-based position of the record in its source.
	RowIndex int

	// Fields holds column name to value.
	Fields map[string]string
}

// Field returns the named field and whether it was present.
func (r RawRecord) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// StructuralTags flags clause types detected by keyword presence.
// The three flags are computed independently.
type StructuralTags struct {
	Coverage  bool `json:"has_coverage"`
	Exclusion bool `json:"has_exclusion"`
	Procedure bool `json:"has_procedure"`
}

// Metadata describes where a passage came from.
type Metadata struct {
	Company    string         `json:"company"`
	SourceFile string         `json:"source"`
	ChunkID    string         `json:"chunk_id"`
	RowIndex   int            `json:"row_index"`
	Tags       StructuralTags `json:"tags"`
	Page       string         `json:"page,omitempty"`
	Section    string         `json:"section_name,omitempty"`
	Subsection string         `json:"subsection_name,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Procedure  string         `json:"procedure,omitempty"`
}

// DocumentRef returns the identifier used when citing a passage: the
// source-provided chunk id, or the row index when the source had none.
func (m Metadata) DocumentRef() string {
	if m.ChunkID != "" {
		return m.ChunkID
	}
	return strconv.Itoa(m.RowIndex)
}

// Document is a cleaned, relevance-filtered policy passage.
// Documents are immutable once created.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Chunk is a retrievable window of a Document.
// Content is exactly the parent's content between the Start and End rune offsets.
type Chunk struct {
	// ID is deterministic for a given parent and position.
	ID string

	// DocumentID is the parent document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Position is the chunk index within the parent.
	Position int

	// Start and End are rune offsets into the parent content.
	Start int
	End   int

	// Metadata is a copy of the parent's metadata.
	Metadata Metadata
}

// CompanySource configures where an insurer's policy data lives.
type CompanySource struct {
	// Name is the insurer identifier shown to users, e.g. "삼성화재_애니펫".
	Name string

	// Path is the CSV or PDF file holding the insurer's policy text.
	Path string
}
