// Package chromem provides the vector index adapter backed by chromem-go,
// an embeddable in-process vector database.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var (
	_ driven.VectorIndex        = (*Index)(nil)
	_ driven.VectorIndexFactory = (*Factory)(nil)
)

// errNoEmbeddingFunc is returned if chromem ever tries to embed on our behalf.
// Every document and query carries a precomputed vector.
var errNoEmbeddingFunc = errors.New("chromem: vectors must be precomputed")

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Factory creates per-company collections in a shared in-memory database.
type Factory struct {
	db  *chromem.DB
	seq atomic.Int64
}

// NewFactory creates a factory with a fresh in-memory database.
func NewFactory() *Factory {
	return &Factory{db: chromem.NewDB()}
}

// NewVectorIndex creates an empty index for company. Each call gets its own
// collection so a rebuild never disturbs an index still being searched.
func (f *Factory) NewVectorIndex(company string) (driven.VectorIndex, error) {
	name := company + "#" + strconv.FormatInt(f.seq.Add(1), 10)
	col, err := f.db.CreateCollection(name, map[string]string{"company": company}, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection for %s: %w", company, err)
	}
	return &Index{db: f.db, name: name, collection: col}, nil
}

// Index is one company's vector index.
type Index struct {
	db         *chromem.DB
	name       string
	collection *chromem.Collection

	mu         sync.Mutex
	dimensions int
}

// Add validates the whole batch before inserting any of it.
func (i *Index) Add(ctx context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	dims := i.dimensions
	docs := make([]chromem.Document, len(entries))
	for n, e := range entries {
		if e.Chunk.ID == "" {
			return fmt.Errorf("%w: entry %d has no chunk id", domain.ErrInvalidInput, n)
		}
		if dims == 0 {
			dims = len(e.Embedding)
		}
		if len(e.Embedding) != dims {
			return fmt.Errorf("%w: entry %d has %d dimensions, want %d",
				domain.ErrInvalidInput, n, len(e.Embedding), dims)
		}
		if isZero(e.Embedding) {
			return fmt.Errorf("%w: entry %d has a zero vector", domain.ErrInvalidInput, n)
		}
		docs[n] = chromem.Document{
			ID:        e.Chunk.ID,
			Content:   e.Chunk.Content,
			Embedding: e.Embedding,
			Metadata: map[string]string{
				"company":     e.Chunk.Metadata.Company,
				"document_id": e.Chunk.DocumentID,
			},
		}
	}

	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	i.dimensions = dims
	return nil
}

// Search returns up to k nearest chunks by cosine similarity.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	count := i.collection.Count()
	if k <= 0 || count == 0 {
		return nil, nil
	}
	if isZero(query) {
		return nil, fmt.Errorf("%w: zero query vector", domain.ErrInvalidInput)
	}

	i.mu.Lock()
	dims := i.dimensions
	i.mu.Unlock()
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrInvalidInput, len(query), dims)
	}

	k = min(k, count)
	results, err := i.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]driven.VectorHit, len(results))
	for n, r := range results {
		hits[n] = driven.VectorHit{ChunkID: r.ID, Similarity: float64(r.Similarity)}
	}
	return hits, nil
}

// Count returns the number of vectors in the index.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Close drops the collection.
func (i *Index) Close() error {
	return i.db.DeleteCollection(i.name)
}

func isZero(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return sum == 0 || math.IsNaN(sum)
}
