package mcp

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
)

// mockQueryService is a test double for driving.QueryService.
type mockQueryService struct {
	record     domain.AnswerRecord
	summary    string
	summaryErr error
	stats      domain.PerformanceStats
	resetErr   error

	processed  []string
	companies  [][]string
	summarised int
	resets     int
}

var _ driving.QueryService = (*mockQueryService)(nil)

func (m *mockQueryService) Process(_ context.Context, question string, companies []string) domain.AnswerRecord {
	m.processed = append(m.processed, question)
	m.companies = append(m.companies, companies)
	rec := m.record
	rec.Question = question
	return rec
}

func (m *mockQueryService) Compare(ctx context.Context, question string, companies []string) []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(companies))
	for i, c := range companies {
		out[i] = m.Process(ctx, question, []string{c})
	}
	return out
}

func (m *mockQueryService) Summarise(_ context.Context, _ domain.AnswerRecord) (string, error) {
	m.summarised++
	return m.summary, m.summaryErr
}

func (m *mockQueryService) Recommend(_ context.Context, _ []domain.AnswerRecord, _ int) (string, error) {
	return "", nil
}

func (m *mockQueryService) PerformanceStats() domain.PerformanceStats {
	return m.stats
}

func (m *mockQueryService) ResetPerformance(_ context.Context) error {
	m.resets++
	return m.resetErr
}

// mockCompanyIndex is a test double for CompanyIndex.
type mockCompanyIndex struct {
	companies []string
	sources   map[string]string
}

func (m *mockCompanyIndex) Companies() []string {
	return m.companies
}

func (m *mockCompanyIndex) SourcePath(company string) (string, bool) {
	p, ok := m.sources[company]
	return p, ok
}
