package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

func policyRecords(n int, format string) []domain.RawRecord {
	recs := make([]domain.RawRecord, n)
	for i := range recs {
		recs[i] = record(i, fmt.Sprintf(format, i))
	}
	return recs
}

func TestIndexService_BuildAll(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"a.csv": {
			record(0, "예방접종 비용은 보장되지 않습니다."),
			record(1, "슬개골 탈구 수술비는 보험금 지급 대상입니다."),
			record(2, "짧음"),
		},
		"b.csv": {record(0, "입원 치료비는 하루 10만원까지 보상합니다.")},
	}}
	vectors := newFakeVectorFactory()
	svc := newTestIndexService(t, loader, newKeywordEmbedder("예방접종", "수술", "입원"), vectors, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}, {Name: "Gone", Path: "gone.csv"}, {Name: "B", Path: "b.csv"}},
		DataDir:   "/data",
	})

	report, err := svc.BuildAll(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Companies, 3)
	assert.Equal(t, []string{"A", "B"}, report.Built())
	assert.Equal(t, []string{"A", "B"}, svc.Companies())

	a := report.Companies[0]
	assert.Equal(t, 3, a.Records)
	assert.Equal(t, 2, a.Documents, "the short record is dropped")
	assert.Equal(t, 2, a.Indexed)

	gone := report.Companies[1]
	assert.True(t, gone.Skipped)
	assert.NotEmpty(t, gone.Error)

	ci, ok := svc.Indexes().Get("A")
	require.True(t, ok)
	assert.Equal(t, 2, ci.Len())
	assert.Equal(t, 2, ci.Vector.Count())
	assert.Equal(t, 2, ci.Lexical.Len())
	assert.Equal(t, filepath.Join("/data", "a.csv"), ci.Source)
	for _, ch := range ci.Chunks() {
		assert.Equal(t, "A", ch.Metadata.Company)
		assert.Equal(t, "a.csv", ch.Metadata.SourceFile)
	}
}

func TestIndexService_BuildAll_ClosesPreviousSet(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"a.csv": {record(0, "예방접종 비용은 보장되지 않습니다.")},
	}}
	vectors := newFakeVectorFactory()
	svc := newTestIndexService(t, loader, newKeywordEmbedder("예방접종"), vectors, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}},
	})

	_, err := svc.BuildAll(context.Background())
	require.NoError(t, err)
	_, err = svc.BuildAll(context.Background())
	require.NoError(t, err)

	created := vectors.created["A"]
	require.Len(t, created, 2)
	assert.True(t, created[0].closed)
	assert.False(t, created[1].closed)
}

func TestIndexService_Build_SkipsFailedBatches(t *testing.T) {
	embedder := newKeywordEmbedder("보험")
	embedder.failOn[3] = true
	svc := newTestIndexService(t, &fakeLoader{}, embedder, newFakeVectorFactory(), IndexConfig{BatchSize: 2})
	result := &domain.CompanyBuildResult{Company: "A"}

	ci, err := svc.Build(context.Background(), "A", "a.csv", policyRecords(10, "보험 약관 제%d조 내용입니다."), result)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Chunks)
	assert.Equal(t, 8, result.Indexed)
	assert.Equal(t, []int{3}, result.FailedBatches)
	assert.Equal(t, 8, ci.Len())
	assert.Equal(t, 8, ci.Vector.Count())
	assert.Equal(t, 8, ci.Lexical.Len())

	// Rows 4 and 5 formed the failed batch.
	for _, ch := range ci.Chunks() {
		assert.NotContains(t, []int{4, 5}, ch.Metadata.RowIndex)
	}
}

func TestIndexService_Build_FirstBatchFailure(t *testing.T) {
	embedder := newKeywordEmbedder("보험")
	embedder.failOn[1] = true
	vectors := newFakeVectorFactory()
	svc := newTestIndexService(t, &fakeLoader{}, embedder, vectors, IndexConfig{BatchSize: 2})
	result := &domain.CompanyBuildResult{}

	ci, err := svc.Build(context.Background(), "A", "a.csv", policyRecords(4, "보험 약관 제%d조 내용입니다."), result)

	require.NoError(t, err)
	assert.Equal(t, 2, ci.Len())
	assert.Equal(t, []int{1}, result.FailedBatches)
	assert.Len(t, vectors.created["A"], 1, "the index is created by the first good batch")
}

func TestIndexService_Build_AllBatchesFail(t *testing.T) {
	embedder := newKeywordEmbedder("보험")
	embedder.failOn[1] = true
	embedder.failOn[2] = true
	svc := newTestIndexService(t, &fakeLoader{}, embedder, newFakeVectorFactory(), IndexConfig{BatchSize: 2})

	_, err := svc.Build(context.Background(), "A", "a.csv", policyRecords(4, "보험 약관 제%d조 내용입니다."), nil)

	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestIndexService_Build_NoDocuments(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.RawRecord
	}{
		{"no records", nil},
		{"all too short", []domain.RawRecord{record(0, "보험"), record(1, "")}},
		{"all irrelevant", []domain.RawRecord{record(0, "오늘은 날씨가 아주 맑고 좋습니다")}},
		{"no text field", []domain.RawRecord{{RowIndex: 0, Fields: map[string]string{"other": "보험 약관 내용입니다"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := newKeywordEmbedder("보험")
			svc := newTestIndexService(t, &fakeLoader{}, embedder, newFakeVectorFactory(), IndexConfig{})

			_, err := svc.Build(context.Background(), "A", "a.csv", tt.records, nil)

			assert.True(t, errors.Is(err, domain.ErrNoDocuments))
			assert.Zero(t, embedder.calls, "nothing is embedded")
		})
	}
}

func TestIndexService_Build_LexicalOnly(t *testing.T) {
	svc := newTestIndexService(t, &fakeLoader{}, nil, nil, IndexConfig{})

	ci, err := svc.Build(context.Background(), "A", "a.csv", policyRecords(3, "보험 약관 제%d조 내용입니다."), nil)

	require.NoError(t, err)
	assert.Nil(t, ci.Vector)
	assert.Equal(t, 3, ci.Len())
	assert.Equal(t, 3, ci.Lexical.Len())
}

func TestIndexService_BuildCompany(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"a.csv": {record(0, "예방접종 비용은 보장되지 않습니다.")},
		"b.csv": {record(0, "입원 치료비는 하루 10만원까지 보상합니다.")},
	}}
	vectors := newFakeVectorFactory()
	svc := newTestIndexService(t, loader, newKeywordEmbedder("예방접종"), vectors, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}, {Name: "B", Path: "b.csv"}},
	})
	_, err := svc.BuildAll(context.Background())
	require.NoError(t, err)
	before := svc.Indexes()
	oldB, _ := before.Get("B")

	loader.records["a.csv"] = append(loader.records["a.csv"], record(1, "수술비는 연간 500만원 한도로 보상합니다."))
	result, err := svc.BuildCompany(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	after := svc.Indexes()
	assert.NotSame(t, before, after)
	a, _ := after.Get("A")
	assert.Equal(t, 2, a.Len())
	newB, _ := after.Get("B")
	assert.Same(t, oldB, newB, "other companies are shared")
	assert.Equal(t, []string{"A", "B"}, after.Companies())

	oldA, _ := before.Get("A")
	assert.Equal(t, 1, oldA.Len(), "published sets are never modified")
	assert.True(t, vectors.created["A"][0].closed)
	assert.False(t, vectors.created["B"][0].closed)
}

func TestIndexService_BuildCompany_AddsMissingCompanyInOrder(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"b.csv": {record(0, "입원 치료비는 하루 10만원까지 보상합니다.")},
	}}
	svc := newTestIndexService(t, loader, nil, nil, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}, {Name: "B", Path: "b.csv"}},
	})
	_, err := svc.BuildAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, svc.Companies())

	loader.records["a.csv"] = []domain.RawRecord{record(0, "예방접종 비용은 보장되지 않습니다.")}
	_, err = svc.BuildCompany(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, svc.Companies())
}

func TestIndexService_BuildCompany_Errors(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"a.csv": {record(0, "예방접종 비용은 보장되지 않습니다.")},
	}}
	svc := newTestIndexService(t, loader, nil, nil, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}},
	})
	_, err := svc.BuildAll(context.Background())
	require.NoError(t, err)
	before := svc.Indexes()

	_, err = svc.BuildCompany(context.Background(), "Nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	loader.records["a.csv"] = []domain.RawRecord{record(0, "짧음")}
	result, err := svc.BuildCompany(context.Background(), "A")
	assert.True(t, errors.Is(err, domain.ErrNoDocuments))
	require.NotNil(t, result)
	assert.True(t, result.Skipped)
	assert.Same(t, before, svc.Indexes(), "a failed rebuild keeps the current set")
}

func TestIndexService_BuildAll_Cancelled(t *testing.T) {
	loader := &fakeLoader{records: map[string][]domain.RawRecord{
		"a.csv": {record(0, "예방접종 비용은 보장되지 않습니다.")},
	}}
	svc := newTestIndexService(t, loader, nil, nil, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BuildAll(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, svc.Indexes().Len())
}

func TestIndexService_SourcePathAndCompanyForPath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "abs", "b.csv")
	svc := newTestIndexService(t, &fakeLoader{}, nil, nil, IndexConfig{
		Companies: []domain.CompanySource{{Name: "A", Path: "a.csv"}, {Name: "B", Path: abs}},
		DataDir:   dir,
	})

	p, ok := svc.SourcePath("A")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.csv"), p)
	_, ok = svc.SourcePath("C")
	assert.False(t, ok)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{filepath.Join(dir, "a.csv"), "A", true},
		{filepath.Join(dir, "sub", "..", "a.csv"), "A", true},
		{abs, "B", true},
		{filepath.Join(dir, "c.csv"), "", false},
	}
	for _, tt := range tests {
		got, ok := svc.CompanyForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestIndexSet_NilSafe(t *testing.T) {
	var set *IndexSet

	_, ok := set.Get("A")
	assert.False(t, ok)
	assert.Zero(t, set.Len())
	assert.Nil(t, set.Companies())
	set.closeAll()
}
