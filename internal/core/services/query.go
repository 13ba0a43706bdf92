package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// DefaultRecommendCount is the number of insurers ranked when none is given.
const DefaultRecommendCount = 3

// Answerer produces one answer record per question.
type Answerer interface {
	Answer(ctx context.Context, question string, companies []string) domain.AnswerRecord
}

// QueryService times questions, keeps the performance log and runs the
// follow-up summary and recommendation prompts.
type QueryService struct {
	answers Answerer
	llm     driven.LLMService
	prompts driven.PromptStore
	perf    *PerformanceLog
	cfg     AnswerConfig
}

// NewQueryService creates the orchestration service.
// cfg supplies temperature, token and timeout limits for follow-up prompts.
func NewQueryService(
	answers Answerer,
	llm driven.LLMService,
	prompts driven.PromptStore,
	perf *PerformanceLog,
	cfg AnswerConfig,
) *QueryService {
	if perf == nil {
		perf = NewPerformanceLog(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultLLMTimeout
	}
	return &QueryService{
		answers: answers,
		llm:     llm,
		prompts: prompts,
		perf:    perf,
		cfg:     cfg,
	}
}

// Process answers one question and logs its outcome.
func (s *QueryService) Process(ctx context.Context, question string, companies []string) domain.AnswerRecord {
	logger.Section("Question")
	logger.Debug("question=%q companies=%v", question, companies)

	start := time.Now()
	rec := s.answers.Answer(ctx, question, companies)
	rec.ExecutionTime = time.Since(start).Seconds()

	logged := rec.Companies
	if len(logged) == 0 {
		logged = rec.AnsweredCompanies
	}
	s.perf.Append(ctx, domain.PerformanceEntry{
		Timestamp:     start,
		Question:      question,
		Companies:     logged,
		ExecutionTime: rec.ExecutionTime,
		Status:        rec.Status,
		Success:       rec.Success,
		Error:         rec.Error,
	})

	logger.Info("answered in %.2fs: %s", rec.ExecutionTime, rec.Status)
	return rec
}

// Compare answers the question once per company, sequentially and in order.
func (s *QueryService) Compare(ctx context.Context, question string, companies []string) []domain.AnswerRecord {
	records := make([]domain.AnswerRecord, 0, len(companies))
	for _, c := range companies {
		records = append(records, s.Process(ctx, question, []string{c}))
	}
	return records
}

// Summarise condenses a successful answer into key points, caveats and advice.
func (s *QueryService) Summarise(ctx context.Context, rec domain.AnswerRecord) (string, error) {
	if rec.Status != domain.AnswerStatusSuccess || strings.TrimSpace(rec.Answer) == "" {
		return "", fmt.Errorf("%w: only successful answers can be summarised", domain.ErrInvalidInput)
	}

	tmpl, err := s.prompts.Load(driven.PromptSummary)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	return s.chat(ctx, "", fmt.Sprintf(tmpl, rec.Answer))
}

// Recommend ranks insurers from prior answers without retrieving again.
// At most min(topN, distinct companies) insurers are ranked.
func (s *QueryService) Recommend(ctx context.Context, records []domain.AnswerRecord, topN int) (string, error) {
	if topN <= 0 {
		topN = DefaultRecommendCount
	}

	dossier, companies := BuildDossier(records)
	if companies == 0 {
		return "", fmt.Errorf("%w: no answered questions to recommend from", domain.ErrInvalidInput)
	}

	sysTmpl, err := s.prompts.Load(driven.PromptRecommendSystem)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	userTmpl, err := s.prompts.Load(driven.PromptRecommendUser)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}

	k := min(topN, companies)
	logger.Debug("recommending top %d of %d companies", k, companies)
	return s.chat(ctx, fmt.Sprintf(sysTmpl, k), fmt.Sprintf(userTmpl, dossier))
}

// BuildDossier renders successful records as question/answer/source lines
// and counts the distinct companies they cover.
func BuildDossier(records []domain.AnswerRecord) (string, int) {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Status != domain.AnswerStatusSuccess {
			continue
		}
		company := rec.PrimaryCompany()
		if company == "" {
			company = "Unknown"
		}
		seen[company] = true

		fmt.Fprintf(&b, "[질문] %s\n", rec.Question)
		fmt.Fprintf(&b, "[%s] %s\n", company, rec.Answer)
		if len(rec.Sources) > 0 {
			labels := make([]string, len(rec.Sources))
			for i, src := range rec.Sources {
				labels[i] = src.Format()
			}
			fmt.Fprintf(&b, "  출처: %s\n", strings.Join(labels, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), len(seen)
}

func (s *QueryService) chat(ctx context.Context, system, user string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: no LLM configured", domain.ErrConfiguration)
	}

	var messages []driven.ChatMessage
	if system != "" {
		messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	}
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: user})

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.llm.Chat(callCtx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: LLM call exceeded %s", domain.ErrServiceTimeout, s.cfg.Timeout)
		}
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// PerformanceStats summarises processed questions.
func (s *QueryService) PerformanceStats() domain.PerformanceStats {
	return s.perf.Stats()
}

// ResetPerformance clears the performance log.
func (s *QueryService) ResetPerformance(ctx context.Context) error {
	return s.perf.Reset(ctx)
}
