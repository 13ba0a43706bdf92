package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.QueryLogStore = (*QueryLogStore)(nil)

// QueryLogStore is an in-memory implementation of driven.QueryLogStore.
type QueryLogStore struct {
	mu      sync.RWMutex
	entries []domain.PerformanceEntry
}

// NewQueryLogStore creates a new in-memory query log.
func NewQueryLogStore() *QueryLogStore {
	return &QueryLogStore{}
}

// AppendQueryLog records one processed question.
func (s *QueryLogStore) AppendQueryLog(_ context.Context, entry domain.PerformanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Companies = append([]string(nil), entry.Companies...)
	s.entries = append(s.entries, entry)
	return nil
}

// ListQueryLog returns entries in chronological order.
func (s *QueryLogStore) ListQueryLog(_ context.Context, limit int) ([]domain.PerformanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.entries) > limit {
		start = len(s.entries) - limit
	}
	out := make([]domain.PerformanceEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

// ClearQueryLog removes every entry.
func (s *QueryLogStore) ClearQueryLog(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
