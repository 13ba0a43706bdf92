package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.EmbeddingCacheStore = (*EmbeddingCacheStore)(nil)

// EmbeddingCacheStore is an in-memory implementation of driven.EmbeddingCacheStore.
type EmbeddingCacheStore struct {
	mu      sync.RWMutex
	entries map[string]map[string][]float32
}

// NewEmbeddingCacheStore creates a new in-memory embedding cache.
func NewEmbeddingCacheStore() *EmbeddingCacheStore {
	return &EmbeddingCacheStore{
		entries: make(map[string]map[string][]float32),
	}
}

// GetEmbeddings returns copies of the stored vectors for the given keys.
func (s *EmbeddingCacheStore) GetEmbeddings(
	_ context.Context,
	namespace string,
	keys []string,
) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]float32, len(keys))
	ns := s.entries[namespace]
	for _, k := range keys {
		if vec, ok := ns[k]; ok {
			result[k] = append([]float32(nil), vec...)
		}
	}
	return result, nil
}

// PutEmbeddings stores vectors by key. Existing keys are left untouched.
func (s *EmbeddingCacheStore) PutEmbeddings(
	_ context.Context,
	namespace string,
	entries map[string][]float32,
) error {
	for k, vec := range entries {
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty embedding for key %s", domain.ErrInvalidInput, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.entries[namespace]
	if !ok {
		ns = make(map[string][]float32, len(entries))
		s.entries[namespace] = ns
	}
	for k, vec := range entries {
		if _, exists := ns[k]; exists {
			continue
		}
		ns[k] = append([]float32(nil), vec...)
	}
	return nil
}

// CountEmbeddings returns the number of vectors stored under the namespace.
func (s *EmbeddingCacheStore) CountEmbeddings(_ context.Context, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[namespace]), nil
}
