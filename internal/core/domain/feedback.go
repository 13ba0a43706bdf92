package domain

import (
	"fmt"
	"time"
)

// Criterion is one rated aspect of an answer.
type Criterion string

// Feedback criteria.
const (
	CriterionAccuracy     Criterion = "accuracy"
	CriterionCompleteness Criterion = "completeness"
	CriterionClarity      Criterion = "clarity"
	CriterionUsefulness   Criterion = "usefulness"
	CriterionFriendliness Criterion = "friendliness"
)

// Score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// AllCriteria returns the criteria in display order.
func AllCriteria() []Criterion {
	return []Criterion{
		CriterionAccuracy,
		CriterionCompleteness,
		CriterionClarity,
		CriterionUsefulness,
		CriterionFriendliness,
	}
}

// Label returns the Korean display label.
func (c Criterion) Label() string {
	switch c {
	case CriterionAccuracy:
		return "정확성"
	case CriterionCompleteness:
		return "완성도"
	case CriterionClarity:
		return "명확성"
	case CriterionUsefulness:
		return "실용성"
	case CriterionFriendliness:
		return "친근함"
	default:
		return string(c)
	}
}

// Feedback is a user's rating of one answer.
type Feedback struct {
	ID        int64             `json:"id,omitempty"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Company   string            `json:"company,omitempty"`
	Scores    map[Criterion]int `json:"scores"`
	Comment   string            `json:"comments,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	CreatedAt time.Time         `json:"timestamp"`
}

// Validate checks that every criterion has a score within [MinScore, MaxScore].
func (f Feedback) Validate() error {
	for _, c := range AllCriteria() {
		score, ok := f.Scores[c]
		if !ok {
			return fmt.Errorf("%w: missing score for %s", ErrValidation, c)
		}
		if score < MinScore || score > MaxScore {
			return fmt.Errorf("%w: %s score %d outside %d-%d", ErrValidation, c, score, MinScore, MaxScore)
		}
	}
	for c := range f.Scores {
		if !c.isKnown() {
			return fmt.Errorf("%w: unknown criterion %q", ErrValidation, c)
		}
	}
	return nil
}

// Overall returns the mean of the criterion scores.
func (f Feedback) Overall() float64 {
	if len(f.Scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range f.Scores {
		total += s
	}
	return float64(total) / float64(len(f.Scores))
}

func (c Criterion) isKnown() bool {
	for _, known := range AllCriteria() {
		if c == known {
			return true
		}
	}
	return false
}

// CompanyFeedback aggregates feedback for one company.
type CompanyFeedback struct {
	Company string  `json:"company"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// FeedbackStats aggregates feedback over a period.
type FeedbackStats struct {
	PeriodDays         int                   `json:"period_days"`
	Total              int                   `json:"total_feedback"`
	AverageOverall     float64               `json:"average_overall"`
	CriteriaAverages   map[Criterion]float64 `json:"criteria_averages"`
	CompanyPerformance []CompanyFeedback     `json:"company_performance"`
}

// Strengths returns criteria averaging at least 4.
func (s FeedbackStats) Strengths() []Criterion {
	var out []Criterion
	for _, c := range AllCriteria() {
		if avg, ok := s.CriteriaAverages[c]; ok && avg >= 4 {
			out = append(out, c)
		}
	}
	return out
}

// NeedsImprovement returns criteria averaging at most 2.
func (s FeedbackStats) NeedsImprovement() []Criterion {
	var out []Criterion
	for _, c := range AllCriteria() {
		if avg, ok := s.CriteriaAverages[c]; ok && avg <= 2 {
			out = append(out, c)
		}
	}
	return out
}
