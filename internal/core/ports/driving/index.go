package driving

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// IndexService builds and holds the per-company indexes.
type IndexService interface {
	// BuildAll builds an index for every configured company and installs the
	// resulting set. Companies that fail are skipped and reported.
	BuildAll(ctx context.Context) (*domain.BuildReport, error)

	// BuildCompany builds one company and swaps it into the current set.
	BuildCompany(ctx context.Context, company string) (*domain.CompanyBuildResult, error)

	// Companies returns the names of companies with a built index, in configured order.
	Companies() []string
}
