package driven

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// QueryLogStore persists performance entries across runs.
type QueryLogStore interface {
	// AppendQueryLog records one processed question.
	AppendQueryLog(ctx context.Context, entry domain.PerformanceEntry) error

	// ListQueryLog returns entries in chronological order. A limit of zero
	// or less returns every entry, otherwise only the most recent limit.
	ListQueryLog(ctx context.Context, limit int) ([]domain.PerformanceEntry, error)

	// ClearQueryLog removes every entry.
	ClearQueryLog(ctx context.Context) error
}
