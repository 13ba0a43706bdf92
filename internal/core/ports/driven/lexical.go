package driven

import "github.com/custodia-labs/pawclause/internal/core/domain"

// LexicalIndex provides keyword (BM25) search over one company's chunks.
type LexicalIndex interface {
	// Search returns up to k chunks ranked by descending BM25 score.
	// Chunks sharing no term with the query are not returned.
	Search(query string, k int) []LexicalHit

	// Len returns the number of indexed chunks.
	Len() int
}

// LexicalIndexFactory builds a lexical index over exactly the given chunks.
type LexicalIndexFactory interface {
	NewLexicalIndex(chunks []domain.Chunk) LexicalIndex
}

// LexicalHit represents a keyword search result.
type LexicalHit struct {
	ChunkID string
	Score   float64
}
