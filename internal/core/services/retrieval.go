package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

// IndexProvider exposes the current index set.
type IndexProvider interface {
	Indexes() *IndexSet
}

// RetrievalService ranks a company's chunks against a query.
type RetrievalService struct {
	indexes  IndexProvider
	embedder driven.EmbeddingService
	mode     domain.RetrievalMode
}

// NewRetrievalService creates a retrieval service.
// The embedder may be nil when mode is lexical.
func NewRetrievalService(
	indexes IndexProvider, embedder driven.EmbeddingService, mode domain.RetrievalMode,
) *RetrievalService {
	if !mode.IsValid() {
		mode = domain.RetrievalModeVector
	}
	return &RetrievalService{
		indexes:  indexes,
		embedder: embedder,
		mode:     mode,
	}
}

// Mode returns the ranking mode in use.
func (s *RetrievalService) Mode() domain.RetrievalMode {
	return s.mode
}

// Retrieve returns up to k chunks ranked by descending score.
// An empty company searches every indexed company and merges by score.
func (s *RetrievalService) Retrieve(
	ctx context.Context, company, query string, k int,
) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = domain.DefaultTopK
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	set := s.indexes.Indexes()
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing has been indexed", domain.ErrNoIndexAvailable)
	}

	if company != "" {
		ci, ok := set.Get(company)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoIndexAvailable, company)
		}
		return s.retrieveCompany(ctx, ci, query, k)
	}

	// Embed once and reuse the vector for every company.
	var qvec []float32
	if s.mode.RequiresEmbedding() {
		var err error
		if qvec, err = s.embedQuery(ctx, query); err != nil {
			return nil, err
		}
	}

	var all []domain.ScoredChunk
	for _, name := range set.Companies() {
		ci, _ := set.Get(name)
		hits, err := s.rank(ctx, ci, query, qvec, k)
		if err != nil {
			return nil, fmt.Errorf("retrieve %s: %w", name, err)
		}
		all = append(all, hits...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

func (s *RetrievalService) retrieveCompany(
	ctx context.Context, ci *CompanyIndex, query string, k int,
) ([]domain.ScoredChunk, error) {
	var qvec []float32
	if s.mode.RequiresEmbedding() {
		var err error
		if qvec, err = s.embedQuery(ctx, query); err != nil {
			return nil, err
		}
	}
	return s.rank(ctx, ci, query, qvec, k)
}

func (s *RetrievalService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: %s retrieval needs an embedding service", domain.ErrConfiguration, s.mode)
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

func (s *RetrievalService) rank(
	ctx context.Context, ci *CompanyIndex, query string, qvec []float32, k int,
) ([]domain.ScoredChunk, error) {
	switch s.mode {
	case domain.RetrievalModeLexical:
		return s.lexicalSearch(ci, query, k)
	case domain.RetrievalModeHybrid:
		return s.hybridSearch(ctx, ci, query, qvec, k)
	default:
		return s.vectorSearch(ctx, ci, qvec, k)
	}
}

func (s *RetrievalService) vectorSearch(
	ctx context.Context, ci *CompanyIndex, qvec []float32, k int,
) ([]domain.ScoredChunk, error) {
	if ci.Vector == nil {
		return nil, fmt.Errorf("%w: %s has no vector index", domain.ErrNoIndexAvailable, ci.Company)
	}
	hits, err := ci.Vector.Search(ctx, qvec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		ch, ok := ci.Chunk(h.ChunkID)
		if !ok {
			logger.Warn("%s: vector hit %s has no chunk", ci.Company, h.ChunkID)
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: ch, Score: h.Similarity})
	}
	logger.Debug("%s: vector search returned %d hits", ci.Company, len(out))
	return out, nil
}

func (s *RetrievalService) lexicalSearch(ci *CompanyIndex, query string, k int) ([]domain.ScoredChunk, error) {
	if ci.Lexical == nil {
		return nil, fmt.Errorf("%w: %s has no lexical index", domain.ErrNoIndexAvailable, ci.Company)
	}
	hits := ci.Lexical.Search(query, k)

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		ch, ok := ci.Chunk(h.ChunkID)
		if !ok {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: ch, Score: h.Score})
	}
	logger.Debug("%s: lexical search returned %d hits", ci.Company, len(out))
	return out, nil
}

// hybridSearch fuses vector and lexical rankings with RRF. If one side
// fails the other is used alone.
func (s *RetrievalService) hybridSearch(
	ctx context.Context, ci *CompanyIndex, query string, qvec []float32, k int,
) ([]domain.ScoredChunk, error) {
	candidates := k * 2

	vec, vecErr := s.vectorSearch(ctx, ci, qvec, candidates)
	lex, lexErr := s.lexicalSearch(ci, query, candidates)

	switch {
	case vecErr != nil && lexErr != nil:
		return nil, fmt.Errorf("hybrid search: vector=%w, lexical=%w", vecErr, lexErr)
	case vecErr != nil:
		logger.Warn("%s: vector search failed, using lexical results only: %v", ci.Company, vecErr)
		return truncate(lex, k), nil
	case lexErr != nil:
		logger.Warn("%s: lexical search failed, using vector results only: %v", ci.Company, lexErr)
		return truncate(vec, k), nil
	}

	return truncate(reciprocalRankFusion(vec, lex, rrfK), k), nil
}

// reciprocalRankFusion merges two ranked lists.
// k is the constant (typically 60) to prevent high ranks from dominating.
// Ties keep first-seen order.
func reciprocalRankFusion(list1, list2 []domain.ScoredChunk, k int) []domain.ScoredChunk {
	scores := make(map[string]float64)
	var merged []domain.ScoredChunk

	for _, list := range [][]domain.ScoredChunk{list1, list2} {
		for rank, sc := range list {
			if _, seen := scores[sc.Chunk.ID]; !seen {
				merged = append(merged, domain.ScoredChunk{Chunk: sc.Chunk})
			}
			scores[sc.Chunk.ID] += 1.0 / float64(k+rank+1)
		}
	}

	for i := range merged {
		merged[i].Score = scores[merged[i].Chunk.ID]
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func truncate(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
