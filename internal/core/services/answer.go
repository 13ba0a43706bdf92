package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/guard"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// Fixed answers for the non-synthesised outcomes.
const (
	MessageOutOfScope = "이 질문은 펫보험 약관 범위 밖의 주제여서 답을 할 수 없습니다."
	MessageOffTopic   = "이 질문은 보험 약관과 직접 관련이 없어, 약관 기반 RAG로 답할 수 없습니다.\n" +
		"약관/보장/면책/청구/한도 등 **펫보험 관련 질문**을 주시면 해당 회사 약관에서 찾아 답해드릴게요."
	MessageNoInformation = "선택한 회사에서 관련 정보를 찾을 수 없습니다."
	messageFailurePrefix = "답변 생성 중 오류가 발생했습니다: "
)

// Citation limits.
const (
	MaxSources    = 5
	PreviewLength = 120
)

// CompanyLister lists the companies that can be answered for.
type CompanyLister interface {
	Companies() []string
}

// AnswerConfig controls retrieval breadth and the LLM call.
type AnswerConfig struct {
	TopK        int
	Parallel    bool
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// AnswerService turns a question into an answer record grounded in
// retrieved policy text.
type AnswerService struct {
	guard     *guard.Guard
	retriever driving.RetrievalService
	companies CompanyLister
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       AnswerConfig
}

// NewAnswerService creates an answer synthesizer.
func NewAnswerService(
	g *guard.Guard,
	retriever driving.RetrievalService,
	companies CompanyLister,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg AnswerConfig,
) *AnswerService {
	if g == nil {
		g = guard.New(nil)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultLLMTimeout
	}
	return &AnswerService{
		guard:     g,
		retriever: retriever,
		companies: companies,
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// Answer runs the guard, retrieves context for the target companies and
// asks the LLM. It never fails: errors become a failed record.
func (s *AnswerService) Answer(ctx context.Context, question string, companies []string) domain.AnswerRecord {
	rec := domain.AnswerRecord{
		ID:        uuid.NewString(),
		Question:  question,
		Companies: append([]string(nil), companies...),
		CreatedAt: time.Now(),
	}

	switch s.guard.Check(question) {
	case guard.Blocked:
		logger.Debug("question blocked by stop term")
		return refuse(rec, domain.AnswerStatusRefusedOutOfScope, MessageOutOfScope)
	case guard.OffTopic:
		logger.Debug("question is off topic")
		return refuse(rec, domain.AnswerStatusRefusedOffTopic, MessageOffTopic)
	}

	targets := companies
	if len(targets) == 0 {
		targets = s.companies.Companies()
	}
	if len(targets) == 0 {
		return fail(rec, fmt.Errorf("%w: no company has been indexed", domain.ErrNoIndexAvailable))
	}

	chunks, err := s.retrieve(ctx, question, targets)
	if err != nil {
		return fail(rec, err)
	}
	chunks = filterCompanies(chunks, targets)

	if len(chunks) == 0 {
		logger.Info("no matching content for %v", targets)
		rec.Status = domain.AnswerStatusEmpty
		rec.Success = true
		rec.Answer = MessageNoInformation
		rec.Sources = domain.Sources{}
		return rec
	}

	answer, err := s.synthesise(ctx, question, chunks)
	if err != nil {
		return fail(rec, err)
	}

	rec.Sources = Cite(chunks)
	rec.AnsweredCompanies = inTargetOrder(rec.Sources.Companies(), targets)
	rec.Answer = answer
	rec.Status = domain.AnswerStatusSuccess
	rec.Success = true
	return rec
}

// retrieve gathers chunks per company and concatenates them in target order.
func (s *AnswerService) retrieve(ctx context.Context, question string, targets []string) ([]domain.ScoredChunk, error) {
	results := make([][]domain.ScoredChunk, len(targets))

	if s.cfg.Parallel && len(targets) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i, company := range targets {
			g.Go(func() error {
				hits, err := s.retriever.Retrieve(gctx, company, question, s.cfg.TopK)
				if err != nil {
					return fmt.Errorf("retrieve %s: %w", company, err)
				}
				results[i] = hits
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, company := range targets {
			hits, err := s.retriever.Retrieve(ctx, company, question, s.cfg.TopK)
			if err != nil {
				return nil, fmt.Errorf("retrieve %s: %w", company, err)
			}
			results[i] = hits
		}
	}

	var merged []domain.ScoredChunk
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

func (s *AnswerService) synthesise(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("%w: no LLM configured", domain.ErrConfiguration)
	}

	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}
	userTmpl, err := s.prompts.Load(driven.PromptAnswerUser)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(userTmpl, BuildContext(chunks), question)},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	answer, err := s.llm.Chat(callCtx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrServiceTimeout) {
			return "", fmt.Errorf("%w: LLM call exceeded %s: %v", domain.ErrServiceTimeout, s.cfg.Timeout, err)
		}
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// BuildContext renders chunks as "[company] text" blocks.
func BuildContext(chunks []domain.ScoredChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		text := strings.TrimSpace(sc.Chunk.Content)
		if text == "" {
			continue
		}
		if c := sc.Chunk.Metadata.Company; c != "" {
			text = "[" + c + "] " + text
		}
		blocks = append(blocks, text)
	}
	return strings.Join(blocks, "\n\n")
}

// Cite builds one source per chunk for the MaxSources best-scoring chunks.
// Chunks with equal scores keep their retrieval order.
func Cite(chunks []domain.ScoredChunk) domain.Sources {
	ranked := slices.Clone(chunks)
	slices.SortStableFunc(ranked, func(a, b domain.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	n := min(len(ranked), MaxSources)
	sources := make(domain.Sources, 0, n)
	for _, sc := range ranked[:n] {
		meta := sc.Chunk.Metadata
		sources = append(sources, domain.StructuredSource{
			Company:  meta.Company,
			Document: meta.DocumentRef(),
			Pages:    splitPages(meta.Page),
			Section:  meta.Section,
			Preview:  preview(sc.Chunk.Content, PreviewLength),
			Score:    sc.Score,
		})
	}
	return sources
}

// inTargetOrder returns the cited companies ordered as in targets.
func inTargetOrder(cited, targets []string) []string {
	out := make([]string, 0, len(cited))
	for _, t := range targets {
		if slices.Contains(cited, t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// splitPages turns "3, 4,3" into ["3", "4"].
func splitPages(page string) []string {
	var pages []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(page, ",") {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "n/a") || seen[p] {
			continue
		}
		seen[p] = true
		pages = append(pages, p)
	}
	return pages
}

func preview(text string, n int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if utf8.RuneCountInString(text) > n {
		text = string([]rune(text)[:n])
	}
	return strings.TrimSpace(text)
}

// filterCompanies drops chunks whose company is outside targets.
func filterCompanies(chunks []domain.ScoredChunk, targets []string) []domain.ScoredChunk {
	allowed := make(map[string]bool, len(targets))
	for _, t := range targets {
		allowed[t] = true
	}
	out := chunks[:0:0]
	for _, sc := range chunks {
		if allowed[sc.Chunk.Metadata.Company] {
			out = append(out, sc)
		} else {
			logger.Warn("dropping chunk %s from unexpected company %q", sc.Chunk.ID, sc.Chunk.Metadata.Company)
		}
	}
	return out
}

func refuse(rec domain.AnswerRecord, status domain.AnswerStatus, message string) domain.AnswerRecord {
	rec.Status = status
	rec.Success = true
	rec.Answer = message
	rec.Sources = domain.Sources{}
	return rec
}

func fail(rec domain.AnswerRecord, err error) domain.AnswerRecord {
	logger.Warn("answer failed: %v", err)
	rec.Status = domain.AnswerStatusFailed
	rec.Success = false
	rec.Answer = messageFailurePrefix + err.Error()
	rec.Error = err.Error()
	rec.Sources = domain.Sources{}
	return rec
}
