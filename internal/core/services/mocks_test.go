package services

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/index/bm25"
	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/normalisers/policy"
	"github.com/custodia-labs/pawclause/internal/postprocessors"
)

// fakeLoader serves records keyed by file base name.
type fakeLoader struct {
	records map[string][]domain.RawRecord
}

func (l *fakeLoader) Load(_ context.Context, path string) ([]domain.RawRecord, error) {
	recs, ok := l.records[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not exist", domain.ErrConfiguration, path)
	}
	return recs, nil
}

// keywordEmbedder maps text to term counts over a fixed vocabulary plus a
// constant component, so vectors are never zero.
type keywordEmbedder struct {
	mu     sync.Mutex
	vocab  []string
	calls  int
	failOn map[int]bool
	texts  []string
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab, failOn: make(map[int]bool)}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	v := make([]float32, len(e.vocab)+1)
	for i, term := range e.vocab {
		v[i] = float32(strings.Count(text, term))
	}
	v[len(e.vocab)] = 0.1
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.failOn[call] {
		return nil, fmt.Errorf("%w: batch call %d", domain.ErrEmbeddingUnavailable, call)
	}
	e.mu.Lock()
	e.texts = append(e.texts, texts...)
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int             { return len(e.vocab) + 1 }
func (e *keywordEmbedder) ModelName() string           { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                { return nil }

// fakeVectorIndex is a brute-force cosine index.
type fakeVectorIndex struct {
	mu      sync.Mutex
	entries []driven.VectorEntry
	closed  bool
}

func (i *fakeVectorIndex) Add(_ context.Context, entries []driven.VectorEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = append(i.entries, entries...)
	return nil
}

func (i *fakeVectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	hits := make([]driven.VectorHit, len(i.entries))
	for n, e := range i.entries {
		hits[n] = driven.VectorHit{ChunkID: e.Chunk.ID, Similarity: cosine(query, e.Embedding)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Similarity > hits[b].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (i *fakeVectorIndex) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.entries)
}

func (i *fakeVectorIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type fakeVectorFactory struct {
	mu      sync.Mutex
	created map[string][]*fakeVectorIndex
}

func newFakeVectorFactory() *fakeVectorFactory {
	return &fakeVectorFactory{created: make(map[string][]*fakeVectorIndex)}
}

func (f *fakeVectorFactory) NewVectorIndex(company string) (driven.VectorIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := &fakeVectorIndex{}
	f.created[company] = append(f.created[company], idx)
	return idx, nil
}

// fakeLLM records calls and returns a canned reply.
type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	reply    string
	err      error
	delay    time.Duration
	messages [][]driven.ChatMessage
	opts     []driven.ChatOptions
}

func (l *fakeLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	l.mu.Lock()
	l.calls++
	l.messages = append(l.messages, messages)
	l.opts = append(l.opts, opts)
	l.mu.Unlock()

	if l.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.delay):
		}
	}
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *fakeLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return l.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
}

func (l *fakeLLM) ModelName() string           { return "fake" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error                { return nil }

func (l *fakeLLM) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeLLM) LastMessages() []driven.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return nil
	}
	return l.messages[len(l.messages)-1]
}

// defaultPrompts serves the built-in templates.
type defaultPrompts struct{}

func (defaultPrompts) Load(name string) (string, error) {
	p, ok := file.DefaultPrompt(name)
	if !ok {
		return "", fmt.Errorf("%w: prompt %s", domain.ErrNotFound, name)
	}
	return p, nil
}

func (defaultPrompts) Reload() {}

// fakeRetriever returns canned chunks per company.
type fakeRetriever struct {
	mu      sync.Mutex
	results map[string][]domain.ScoredChunk
	errs    map[string]error
	delays  map[string]time.Duration
	calls   []string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, company, _ string, k int) ([]domain.ScoredChunk, error) {
	r.mu.Lock()
	r.calls = append(r.calls, company)
	r.mu.Unlock()

	if d := r.delays[company]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if err := r.errs[company]; err != nil {
		return nil, err
	}
	res := r.results[company]
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

func (r *fakeRetriever) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type staticCompanies []string

func (s staticCompanies) Companies() []string { return s }

func record(row int, text string) domain.RawRecord {
	return domain.RawRecord{RowIndex: row, Fields: map[string]string{"text": text}}
}

func scored(id, company, content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:       id,
			Content:  content,
			Metadata: domain.Metadata{Company: company, ChunkID: id},
		},
		Score: score,
	}
}

func newTestIndexService(
	t *testing.T,
	loader driven.RecordLoader,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndexFactory,
	cfg IndexConfig,
) *IndexService {
	t.Helper()
	pipeline, err := postprocessors.NewIndexPipeline(domain.DefaultAppSettings().Index)
	require.NoError(t, err)
	return NewIndexService(
		loader,
		policy.New(domain.DefaultTextFields()),
		pipeline,
		embedder,
		vectors,
		bm25.Factory{},
		cfg,
	)
}
