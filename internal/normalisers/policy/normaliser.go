package policy

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.RecordNormaliser = (*Normaliser)(nil)

// Optional source columns copied into document metadata.
const (
	FieldChunkID    = "chunk_id"
	FieldPage       = "page"
	FieldSection    = "section_name"
	FieldSubsection = "subsection_name"
	FieldSubject    = "subject"
	FieldProcedure  = "procedure"
)

// documentNamespace seeds deterministic document ids.
var documentNamespace = uuid.MustParse("6f1c3a52-8f0e-4c55-9a51-7d1f2c0e8b44")

// Normaliser turns raw policy records into documents.
type Normaliser struct {
	textFields []string
}

// New creates a normaliser that takes passage text from the first non-empty
// field in textFields. When textFields is empty the default order is used.
func New(textFields []string) *Normaliser {
	if len(textFields) == 0 {
		textFields = domain.DefaultTextFields()
	}
	return &Normaliser{textFields: textFields}
}

// TextFields returns the configured text field order.
func (n *Normaliser) TextFields() []string {
	return n.textFields
}

// Normalise extracts, cleans and filters a record's text and attaches
// provenance metadata. It returns false when the record is dropped.
func (n *Normaliser) Normalise(company, sourceFile string, record domain.RawRecord) (*domain.Document, bool) {
	text, ok := n.extractText(record)
	if !ok || utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextLength {
		return nil, false
	}

	cleaned := Clean(text)
	if !IsRelevant(cleaned) {
		return nil, false
	}

	source := filepath.Base(sourceFile)
	meta := domain.Metadata{
		Company:    company,
		SourceFile: source,
		ChunkID:    strconv.Itoa(record.RowIndex),
		RowIndex:   record.RowIndex,
		Tags:       ExtractTags(cleaned),
		Page:       optionalField(record, FieldPage),
		Section:    optionalField(record, FieldSection),
		Subsection: optionalField(record, FieldSubsection),
		Subject:    optionalField(record, FieldSubject),
		Procedure:  optionalField(record, FieldProcedure),
	}
	if id := optionalField(record, FieldChunkID); id != "" {
		meta.ChunkID = id
	}

	docKey := company + "\x00" + source + "\x00" + strconv.Itoa(record.RowIndex)
	return &domain.Document{
		ID:       uuid.NewSHA1(documentNamespace, []byte(docKey)).String(),
		Content:  cleaned,
		Metadata: meta,
	}, true
}

// extractText returns the first non-empty configured text field.
func (n *Normaliser) extractText(record domain.RawRecord) (string, bool) {
	for _, field := range n.textFields {
		if v, ok := record.Field(field); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

func optionalField(record domain.RawRecord, name string) string {
	v, _ := record.Field(name)
	return strings.TrimSpace(v)
}
