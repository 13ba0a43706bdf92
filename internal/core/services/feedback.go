package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
)

// Ensure FeedbackService implements the interface.
var _ driving.FeedbackService = (*FeedbackService)(nil)

// DefaultFeedbackDays is the stats window used when none is given.
const DefaultFeedbackDays = 30

// FeedbackService stores user ratings of answers and aggregates them.
type FeedbackService struct {
	store driven.FeedbackStore
	now   func() time.Time
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(store driven.FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store, now: time.Now}
}

// Submit validates and stores feedback.
func (s *FeedbackService) Submit(ctx context.Context, fb domain.Feedback) (int64, error) {
	if err := fb.Validate(); err != nil {
		return 0, err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	id, err := s.store.SaveFeedback(ctx, &fb)
	if err != nil {
		return 0, fmt.Errorf("save feedback: %w", err)
	}
	return id, nil
}

// Stats aggregates feedback from the last days.
func (s *FeedbackService) Stats(ctx context.Context, days int) (*domain.FeedbackStats, error) {
	if days <= 0 {
		days = DefaultFeedbackDays
	}
	since := s.now().AddDate(0, 0, -days)

	items, err := s.store.ListFeedbackSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}

	stats := &domain.FeedbackStats{
		PeriodDays:       days,
		Total:            len(items),
		CriteriaAverages: make(map[domain.Criterion]float64),
	}
	if len(items) == 0 {
		return stats, nil
	}

	sums := make(map[domain.Criterion]int)
	type acc struct {
		count int
		sum   float64
	}
	companies := make(map[string]*acc)
	var overall float64

	for _, fb := range items {
		for c, score := range fb.Scores {
			sums[c] += score
		}
		o := fb.Overall()
		overall += o

		if fb.Company == "" {
			continue
		}
		a, ok := companies[fb.Company]
		if !ok {
			a = &acc{}
			companies[fb.Company] = a
		}
		a.count++
		a.sum += o
	}

	n := float64(len(items))
	stats.AverageOverall = overall / n
	for c, sum := range sums {
		stats.CriteriaAverages[c] = float64(sum) / n
	}
	for name, a := range companies {
		stats.CompanyPerformance = append(stats.CompanyPerformance, domain.CompanyFeedback{
			Company: name,
			Count:   a.count,
			Average: a.sum / float64(a.count),
		})
	}
	sort.Slice(stats.CompanyPerformance, func(i, j int) bool {
		a, b := stats.CompanyPerformance[i], stats.CompanyPerformance[j]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		return a.Company < b.Company
	})
	return stats, nil
}
