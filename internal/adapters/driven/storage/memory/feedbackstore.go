package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore is an in-memory implementation of driven.FeedbackStore.
type FeedbackStore struct {
	mu     sync.RWMutex
	nextID int64
	items  []domain.Feedback
}

// NewFeedbackStore creates a new in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{}
}

// SaveFeedback stores a feedback record and returns its id.
func (s *FeedbackStore) SaveFeedback(_ context.Context, fb *domain.Feedback) (int64, error) {
	if fb == nil {
		return 0, fmt.Errorf("%w: nil feedback", domain.ErrInvalidInput)
	}
	if err := fb.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	fb.ID = s.nextID
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	stored := *fb
	stored.Scores = make(map[domain.Criterion]int, len(fb.Scores))
	for c, v := range fb.Scores {
		stored.Scores[c] = v
	}
	s.items = append(s.items, stored)
	return fb.ID, nil
}

// ListFeedbackSince returns feedback created at or after since, newest first.
func (s *FeedbackStore) ListFeedbackSince(_ context.Context, since time.Time) ([]domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Feedback
	for _, fb := range s.items {
		if !fb.CreatedAt.Before(since) {
			out = append(out, fb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
