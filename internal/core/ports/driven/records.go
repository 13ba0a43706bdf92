package driven

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// RecordLoader reads an insurer's source file into raw records.
type RecordLoader interface {
	// Load returns the records of the file at path in source order.
	// A missing file yields an error wrapping domain.ErrConfiguration.
	Load(ctx context.Context, path string) ([]domain.RawRecord, error)
}

// RecordNormaliser turns raw records into cleaned, relevant documents.
type RecordNormaliser interface {
	// Normalise returns the document for a record, or false when the
	// record has no usable text or fails the relevance check.
	Normalise(company, sourceFile string, record domain.RawRecord) (*domain.Document, bool)
}
