package driving

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// QueryService answers questions and tracks performance.
type QueryService interface {
	// Process answers one question scoped to the given companies
	// (all companies when empty). It never fails; failures are encoded
	// in the returned record.
	Process(ctx context.Context, question string, companies []string) domain.AnswerRecord

	// Compare answers the question once per company, in the given order.
	Compare(ctx context.Context, question string, companies []string) []domain.AnswerRecord

	// Summarise condenses an answer into key points, caveats and advice.
	Summarise(ctx context.Context, record domain.AnswerRecord) (string, error)

	// Recommend ranks insurers from previously answered questions.
	Recommend(ctx context.Context, records []domain.AnswerRecord, topN int) (string, error)

	PerformanceReporter
}

// PerformanceReporter reports on processed questions.
type PerformanceReporter interface {
	// PerformanceStats summarises processed questions.
	PerformanceStats() domain.PerformanceStats

	// ResetPerformance clears the performance log.
	ResetPerformance(ctx context.Context) error
}
