package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/core/services"
)

// fakeIndex is a test double for IndexEngine.
type fakeIndex struct {
	configured []string
	failing    map[string]string
	sources    map[string]string
	built      []string
	buildAlls  int
	rebuilt    []string
}

var _ IndexEngine = (*fakeIndex)(nil)

func (f *fakeIndex) BuildAll(_ context.Context) (*domain.BuildReport, error) {
	f.buildAlls++
	f.built = nil
	report := &domain.BuildReport{}
	for _, c := range f.configured {
		if msg, ok := f.failing[c]; ok {
			report.Companies = append(report.Companies, domain.CompanyBuildResult{Company: c, Skipped: true, Error: msg})
			continue
		}
		f.built = append(f.built, c)
		report.Companies = append(report.Companies, domain.CompanyBuildResult{
			Company: c, Records: 3, Documents: 3, Chunks: 4, Indexed: 4,
		})
	}
	return report, nil
}

func (f *fakeIndex) BuildCompany(_ context.Context, company string) (*domain.CompanyBuildResult, error) {
	for _, c := range f.configured {
		if c == company {
			f.rebuilt = append(f.rebuilt, company)
			return &domain.CompanyBuildResult{Company: company, Records: 2, Documents: 2, Indexed: 2}, nil
		}
	}
	return nil, fmt.Errorf("%w: company %q is not configured", domain.ErrNotFound, company)
}

func (f *fakeIndex) Companies() []string {
	return f.built
}

func (f *fakeIndex) SourcePath(company string) (string, bool) {
	p, ok := f.sources[company]
	return p, ok
}

func (f *fakeIndex) CompanyForPath(path string) (string, bool) {
	for c, p := range f.sources {
		if filepath.Clean(p) == filepath.Clean(path) {
			return c, true
		}
	}
	return "", false
}

// fakeQuery is a test double for driving.QueryService.
type fakeQuery struct {
	status    domain.AnswerStatus
	processed [][]string
	summaries int
	recommend []domain.AnswerRecord
	topN      int
	perf      *services.PerformanceLog
}

var _ driving.QueryService = (*fakeQuery)(nil)

func (f *fakeQuery) Process(_ context.Context, question string, companies []string) domain.AnswerRecord {
	f.processed = append(f.processed, companies)
	status := f.status
	if status == "" {
		status = domain.AnswerStatusSuccess
	}
	answered := companies
	if len(answered) == 0 {
		answered = []string{"A"}
	}
	return domain.AnswerRecord{
		Question:          question,
		Companies:         companies,
		AnsweredCompanies: answered,
		Answer:            "답변: " + question,
		Status:            status,
		Success:           status.Succeeded(),
		ExecutionTime:     0.5,
		Sources: domain.Sources{domain.StructuredSource{
			Company:  answered[0],
			Document: "0",
			Pages:    []string{"3"},
			Preview:  "예방접종 비용",
		}},
	}
}

func (f *fakeQuery) Compare(ctx context.Context, question string, companies []string) []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(companies))
	for i, c := range companies {
		out[i] = f.Process(ctx, question, []string{c})
	}
	return out
}

func (f *fakeQuery) Summarise(_ context.Context, _ domain.AnswerRecord) (string, error) {
	f.summaries++
	return "핵심 요약", nil
}

func (f *fakeQuery) Recommend(_ context.Context, records []domain.AnswerRecord, topN int) (string, error) {
	f.recommend = records
	f.topN = topN
	return "1위: A", nil
}

func (f *fakeQuery) PerformanceStats() domain.PerformanceStats {
	return f.perf.Stats()
}

func (f *fakeQuery) ResetPerformance(ctx context.Context) error {
	return f.perf.Reset(ctx)
}

// testEnv holds the services wired by setupTestServices.
type testEnv struct {
	index    *fakeIndex
	query    *fakeQuery
	settings *services.SettingsService
	feedback *memory.FeedbackStore
	perf     *services.PerformanceLog
	engines  int
	closed   int
}

// setupTestServices wires fakes for the engine and real services over
// in-memory stores for everything else.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		index: &fakeIndex{
			configured: []string{"A", "B"},
			sources:    map[string]string{},
		},
		settings: services.NewSettingsService(memory.NewConfigStore(), t.TempDir()),
		feedback: memory.NewFeedbackStore(),
		perf:     services.NewPerformanceLog(memory.NewQueryLogStore()),
	}
	env.query = &fakeQuery{perf: env.perf}

	SetServices(Services{
		Settings:    env.settings,
		Feedback:    services.NewFeedbackService(env.feedback),
		Performance: env.perf,
		Engine: func(_ context.Context) (*Engine, error) {
			env.engines++
			return &Engine{
				Index: env.index,
				Query: env.query,
				Close: func() error {
					env.closed++
					return nil
				},
			}, nil
		},
	})

	t.Cleanup(func() {
		SetServices(Services{})
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return env
}

// resetFlags restores command flag variables between executions.
func resetFlags() {
	askCompanies, askSummary, askJSON = nil, false, false
	compareCompanies, compareJSON = nil, false
	recommendCompanies, recommendTop = nil, 3
	indexCompany, indexJSON = "", false
	statsReset, statsJSON = false, false
	feedbackQuestion, feedbackAnswer, feedbackCompany = "", "", ""
	feedbackComment, feedbackSession = "", ""
	for _, score := range feedbackScores {
		*score = 0
	}
	feedbackDays, feedbackJSON = 30, false
	verbose = false
}
