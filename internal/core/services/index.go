package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// CompanyIndex is one insurer's searchable chunk population.
// It is immutable once built.
type CompanyIndex struct {
	Company string
	Source  string

	// Vector is nil when the index was built without an embedding service.
	Vector  driven.VectorIndex
	Lexical driven.LexicalIndex

	chunks map[string]domain.Chunk
	order  []string
}

// Chunk returns the indexed chunk with the given id.
func (c *CompanyIndex) Chunk(id string) (domain.Chunk, bool) {
	ch, ok := c.chunks[id]
	return ch, ok
}

// Len returns the number of indexed chunks.
func (c *CompanyIndex) Len() int {
	return len(c.order)
}

// Chunks returns the indexed chunks in merge order.
func (c *CompanyIndex) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(c.order))
	for i, id := range c.order {
		out[i] = c.chunks[id]
	}
	return out
}

func (c *CompanyIndex) close() {
	if c.Vector == nil {
		return
	}
	if err := c.Vector.Close(); err != nil {
		logger.Warn("close vector index for %s: %v", c.Company, err)
	}
}

// IndexSet maps company names to their indexes.
// A set is never modified after it is published.
type IndexSet struct {
	order     []string
	companies map[string]*CompanyIndex
}

func newIndexSet() *IndexSet {
	return &IndexSet{companies: make(map[string]*CompanyIndex)}
}

// Get returns the index for company.
func (s *IndexSet) Get(company string) (*CompanyIndex, bool) {
	if s == nil {
		return nil, false
	}
	ci, ok := s.companies[company]
	return ci, ok
}

// Companies returns indexed company names in configured order.
func (s *IndexSet) Companies() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Len returns the number of indexed companies.
func (s *IndexSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// with returns a copy of the set with ci added or replaced, keeping
// the position given by configured.
func (s *IndexSet) with(ci *CompanyIndex, configured []string) *IndexSet {
	next := newIndexSet()
	for name, existing := range s.companies {
		next.companies[name] = existing
	}
	next.companies[ci.Company] = ci

	for _, name := range configured {
		if _, ok := next.companies[name]; ok {
			next.order = append(next.order, name)
		}
	}
	if _, ok := indexOf(next.order, ci.Company); !ok {
		next.order = append(next.order, ci.Company)
	}
	return next
}

func indexOf(list []string, v string) (int, bool) {
	for i, s := range list {
		if s == v {
			return i, true
		}
	}
	return -1, false
}

// IndexConfig configures the index builder.
type IndexConfig struct {
	// Companies are the insurers to build, in display order.
	Companies []domain.CompanySource

	// DataDir resolves relative company paths.
	DataDir string

	// BatchSize is the number of chunks embedded and merged at once.
	BatchSize int
}

// IndexService loads, normalises, chunks and embeds each insurer's
// policy file into a CompanyIndex.
type IndexService struct {
	loader     driven.RecordLoader
	normaliser driven.RecordNormaliser
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	vectors    driven.VectorIndexFactory
	lexical    driven.LexicalIndexFactory
	cfg        IndexConfig

	current atomic.Pointer[IndexSet]
	swapMu  sync.Mutex
}

// NewIndexService creates an index builder.
// embedder and vectors may both be nil for lexical-only indexes.
func NewIndexService(
	loader driven.RecordLoader,
	normaliser driven.RecordNormaliser,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndexFactory,
	lexical driven.LexicalIndexFactory,
	cfg IndexConfig,
) *IndexService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	s := &IndexService{
		loader:     loader,
		normaliser: normaliser,
		pipeline:   pipeline,
		embedder:   embedder,
		vectors:    vectors,
		lexical:    lexical,
		cfg:        cfg,
	}
	s.current.Store(newIndexSet())
	return s
}

// Indexes returns the current index set.
func (s *IndexService) Indexes() *IndexSet {
	return s.current.Load()
}

// Companies returns the names of companies with a built index, in configured order.
func (s *IndexService) Companies() []string {
	return s.Indexes().Companies()
}

// SourcePath returns the resolved source file for a configured company.
func (s *IndexService) SourcePath(company string) (string, bool) {
	for _, src := range s.cfg.Companies {
		if src.Name == company {
			return s.resolve(src.Path), true
		}
	}
	return "", false
}

// CompanyForPath returns the configured company whose source is path.
func (s *IndexService) CompanyForPath(path string) (string, bool) {
	target := filepath.Clean(path)
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	for _, src := range s.cfg.Companies {
		p := s.resolve(src.Path)
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if p == target {
			return src.Name, true
		}
	}
	return "", false
}

func (s *IndexService) resolve(path string) string {
	if filepath.IsAbs(path) || s.cfg.DataDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.cfg.DataDir, path)
}

// BuildAll builds every configured company and installs the resulting set.
// Failing companies are logged and reported, never fatal.
func (s *IndexService) BuildAll(ctx context.Context) (*domain.BuildReport, error) {
	logger.Section("Index Build")
	start := time.Now()

	report := &domain.BuildReport{}
	next := newIndexSet()
	for _, src := range s.cfg.Companies {
		if err := ctx.Err(); err != nil {
			next.closeAll()
			return nil, err
		}

		ci, result, err := s.buildSource(ctx, src)
		if err != nil {
			logger.Warn("skipping %s: %v", src.Name, err)
			result.Skipped = true
			result.Error = err.Error()
			report.Companies = append(report.Companies, *result)
			continue
		}
		next.companies[ci.Company] = ci
		next.order = append(next.order, ci.Company)
		report.Companies = append(report.Companies, *result)
	}
	report.Duration = time.Since(start)

	s.swapMu.Lock()
	old := s.current.Swap(next)
	s.swapMu.Unlock()
	old.closeAll()

	logger.Info("indexed %d of %d companies in %s", next.Len(), len(s.cfg.Companies), report.Duration)
	return report, nil
}

// BuildCompany rebuilds one configured company wholesale and swaps it into
// the current set. Errors are returned and leave the current set untouched.
func (s *IndexService) BuildCompany(ctx context.Context, company string) (*domain.CompanyBuildResult, error) {
	var src *domain.CompanySource
	for i := range s.cfg.Companies {
		if s.cfg.Companies[i].Name == company {
			src = &s.cfg.Companies[i]
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: company %q is not configured", domain.ErrNotFound, company)
	}

	ci, result, err := s.buildSource(ctx, *src)
	if err != nil {
		result.Skipped = true
		result.Error = err.Error()
		return result, err
	}

	configured := make([]string, len(s.cfg.Companies))
	for i, c := range s.cfg.Companies {
		configured[i] = c.Name
	}

	s.swapMu.Lock()
	prev := s.current.Load()
	old, hadOld := prev.Get(company)
	s.current.Store(prev.with(ci, configured))
	s.swapMu.Unlock()
	if hadOld {
		old.close()
	}

	logger.Info("rebuilt %s: %d chunks", company, result.Indexed)
	return result, nil
}

func (s *IndexService) buildSource(
	ctx context.Context, src domain.CompanySource,
) (*CompanyIndex, *domain.CompanyBuildResult, error) {
	start := time.Now()
	result := &domain.CompanyBuildResult{Company: src.Name}
	defer func() { result.Duration = time.Since(start) }()

	path := s.resolve(src.Path)
	records, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, result, fmt.Errorf("load %s: %w", src.Name, err)
	}
	result.Records = len(records)

	ci, err := s.Build(ctx, src.Name, path, records, result)
	if err != nil {
		return nil, result, err
	}
	return ci, result, nil
}

// Build turns records into a CompanyIndex, filling result with counts.
// A batch that fails to embed or merge is logged and skipped. Zero surviving
// documents yields domain.ErrNoDocuments; every batch failing is an error too.
func (s *IndexService) Build(
	ctx context.Context, company, sourceFile string, records []domain.RawRecord, result *domain.CompanyBuildResult,
) (*CompanyIndex, error) {
	if result == nil {
		result = &domain.CompanyBuildResult{Company: company}
	}

	var chunks []domain.Chunk
	for _, rec := range records {
		doc, ok := s.normaliser.Normalise(company, sourceFile, rec)
		if !ok {
			continue
		}
		result.Documents++

		docChunks, err := s.pipeline.Process(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s row %d: %w", company, rec.RowIndex, err)
		}
		chunks = append(chunks, docChunks...)
	}
	result.Chunks = len(chunks)

	if result.Documents == 0 || len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", company, domain.ErrNoDocuments)
	}
	logger.Debug("%s: %d records, %d documents, %d chunks", company, len(records), result.Documents, len(chunks))

	ci := &CompanyIndex{
		Company: company,
		Source:  sourceFile,
		chunks:  make(map[string]domain.Chunk, len(chunks)),
	}

	merged := chunks
	if s.embedder != nil && s.vectors != nil {
		var err error
		merged, err = s.embedBatches(ctx, ci, chunks, result)
		if err != nil {
			return nil, err
		}
	}

	for _, ch := range merged {
		ci.chunks[ch.ID] = ch
		ci.order = append(ci.order, ch.ID)
	}
	if s.lexical != nil {
		ci.Lexical = s.lexical.NewLexicalIndex(merged)
	}
	result.Indexed = len(merged)
	return ci, nil
}

// embedBatches embeds and merges chunks batch by batch, returning the
// chunks that made it into the vector index.
func (s *IndexService) embedBatches(
	ctx context.Context, ci *CompanyIndex, chunks []domain.Chunk, result *domain.CompanyBuildResult,
) ([]domain.Chunk, error) {
	size := s.cfg.BatchSize
	total := (len(chunks) + size - 1) / size
	merged := make([]domain.Chunk, 0, len(chunks))

	for b := 0; b < total; b++ {
		if err := ctx.Err(); err != nil {
			if ci.Vector != nil {
				_ = ci.Vector.Close()
			}
			return nil, err
		}

		lo, hi := b*size, min((b+1)*size, len(chunks))
		batch := chunks[lo:hi]
		if err := s.mergeBatch(ctx, ci, batch); err != nil {
			logger.Warn("%s: batch %d/%d failed, skipping %d chunks: %v", ci.Company, b+1, total, len(batch), err)
			result.FailedBatches = append(result.FailedBatches, b+1)
			continue
		}
		merged = append(merged, batch...)
		logger.Debug("%s: batch %d/%d merged", ci.Company, b+1, total)
	}

	if ci.Vector == nil {
		return nil, fmt.Errorf("%s: all %d batches failed: %w", ci.Company, total, domain.ErrEmbeddingUnavailable)
	}
	return merged, nil
}

// mergeBatch embeds the whole batch before touching the index, so a batch
// is merged completely or not at all. The first good batch creates the index.
func (s *IndexService) mergeBatch(ctx context.Context, ci *CompanyIndex, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Content
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vecs), len(batch))
	}

	staged := make([]driven.VectorEntry, len(batch))
	for i, ch := range batch {
		staged[i] = driven.VectorEntry{Chunk: ch, Embedding: vecs[i]}
	}

	if ci.Vector == nil {
		idx, err := s.vectors.NewVectorIndex(ci.Company)
		if err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
		if err := idx.Add(ctx, staged); err != nil {
			_ = idx.Close()
			return fmt.Errorf("merge: %w", err)
		}
		ci.Vector = idx
		return nil
	}

	if err := ci.Vector.Add(ctx, staged); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	return nil
}

func (s *IndexSet) closeAll() {
	if s == nil {
		return
	}
	for _, ci := range s.companies {
		ci.close()
	}
}

