// Package cache provides an EmbeddingService decorator that stores vectors
// by content hash so repeated index builds never re-embed the same text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*Service)(nil)

// Stats counts cache lookups.
type Stats struct {
	Hits   int64
	Misses int64
}

// Service wraps an EmbeddingService with a persistent cache.
type Service struct {
	inner     driven.EmbeddingService
	store     driven.EmbeddingCacheStore
	namespace string

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps inner. Vectors are stored under namespace, which should identify
// the provider and model so switching either never mixes vectors.
func New(inner driven.EmbeddingService, store driven.EmbeddingCacheStore, namespace string) *Service {
	return &Service{
		inner:     inner,
		store:     store,
		namespace: namespace,
	}
}

// Key returns the cache key for a text under a namespace.
func Key(namespace, text string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector or computes and stores it.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch resolves cached vectors first and sends only the distinct
// misses to the wrapped service in a single call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = Key(s.namespace, t)
	}

	cached, err := s.store.GetEmbeddings(ctx, s.namespace, keys)
	if err != nil {
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}

	var missTexts []string
	var missKeys []string
	seen := make(map[string]bool)
	for i, k := range keys {
		if _, ok := cached[k]; ok {
			s.hits.Add(1)
			continue
		}
		s.misses.Add(1)
		if seen[k] {
			continue
		}
		seen[k] = true
		missKeys = append(missKeys, k)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) > 0 {
		fresh, err := s.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missTexts) {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(fresh), len(missTexts))
		}

		entries := make(map[string][]float32, len(fresh))
		for i, vec := range fresh {
			entries[missKeys[i]] = vec
			cached[missKeys[i]] = vec
		}
		if err := s.store.PutEmbeddings(ctx, s.namespace, entries); err != nil {
			return nil, fmt.Errorf("writing embedding cache: %w", err)
		}
	}

	out := make([][]float32, len(texts))
	for i, k := range keys {
		out[i] = cached[k]
	}
	return out, nil
}

// Stats returns lookup counters since construction.
func (s *Service) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Namespace returns the cache namespace.
func (s *Service) Namespace() string { return s.namespace }

// Dimensions returns the wrapped service's vector size.
func (s *Service) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *Service) ModelName() string { return s.inner.ModelName() }

// Ping checks the wrapped service.
func (s *Service) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the wrapped service.
func (s *Service) Close() error { return s.inner.Close() }
