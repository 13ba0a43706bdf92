package driven

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// VectorEntry is one embedded chunk staged for insertion.
type VectorEntry struct {
	Chunk     domain.Chunk
	Embedding []float32
}

// VectorIndex provides semantic similarity search over one company's chunks.
type VectorIndex interface {
	// Add merges a fully embedded batch into the index.
	// Either every entry is added or an error is returned.
	Add(ctx context.Context, entries []VectorEntry) error

	// Search finds the k nearest neighbours to the query vector,
	// ordered by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of vectors in the index.
	Count() int

	// Close releases resources.
	Close() error
}

// VectorIndexFactory creates an empty vector index for a company.
type VectorIndexFactory interface {
	NewVectorIndex(company string) (VectorIndex, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score.
	Similarity float64
}
