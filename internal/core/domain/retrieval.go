package domain

// RetrievalMode selects how candidate chunks are ranked.
type RetrievalMode string

// Available retrieval modes.
const (
	// RetrievalModeVector ranks by cosine similarity of embeddings.
	RetrievalModeVector RetrievalMode = "vector"

	// RetrievalModeLexical ranks by BM25 over the same chunk population.
	RetrievalModeLexical RetrievalMode = "lexical"

	// RetrievalModeHybrid fuses the vector and lexical rankings.
	RetrievalModeHybrid RetrievalMode = "hybrid"
)

// IsValid returns true if the retrieval mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case RetrievalModeVector, RetrievalModeLexical, RetrievalModeHybrid:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if queries in this mode must be embedded.
func (m RetrievalMode) RequiresEmbedding() bool {
	return m == RetrievalModeVector || m == RetrievalModeHybrid
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalModeVector:
		return "Vector (embedding similarity)"
	case RetrievalModeLexical:
		return "Lexical (BM25 keywords, no embeddings)"
	case RetrievalModeHybrid:
		return "Hybrid (vector + BM25, reciprocal rank fusion)"
	default:
		return unknownDescription
	}
}

// AllRetrievalModes returns the retrieval modes in display order.
func AllRetrievalModes() []RetrievalMode {
	return []RetrievalMode{RetrievalModeVector, RetrievalModeLexical, RetrievalModeHybrid}
}

// ScoredChunk pairs a chunk with its relevance score.
// Higher is more relevant regardless of mode.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
