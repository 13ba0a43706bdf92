package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pawclause/internal/core/domain"
)

type stubCredentials struct {
	key string
	err error
}

func (c stubCredentials) Apply(settings *domain.AppSettings) error {
	if c.err != nil {
		return c.err
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = c.key
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = c.key
	}
	return nil
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/data")

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Companies, settings.Companies)
	assert.Equal(t, "/data", settings.DataDir)
	assert.Equal(t, filepath.Join("/data", "stopwords.txt"), settings.StopTermsPath)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.LLM, settings.LLM)
	assert.Equal(t, defaults.Index, settings.Index)
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.RateLimit, settings.RateLimit)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=a.csv", "broken", "B = /abs/b.pdf"})
	_ = store.Set("retrieval.mode", "hybrid")
	_ = store.Set("retrieval.top_k", 8)
	_ = store.Set("retrieval.parallel", true)
	_ = store.Set("llm.temperature", 0.0)
	_ = store.Set("llm.timeout", "45s")
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("index.text_fields", []string{"body"})

	settings, err := NewSettingsService(store, "/data").Get()

	require.NoError(t, err)
	assert.Equal(t, []domain.CompanySource{{Name: "A", Path: "a.csv"}, {Name: "B", Path: "/abs/b.pdf"}}, settings.Companies)
	assert.Equal(t, domain.RetrievalModeHybrid, settings.Retrieval.Mode)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	assert.True(t, settings.Retrieval.Parallel)
	assert.Zero(t, settings.LLM.Temperature)
	assert.Equal(t, 45*time.Second, settings.LLM.Timeout)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, []string{"body"}, settings.Index.TextFields)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.mode", "psychic")
	_ = store.Set("llm.provider", "nobody")
	_ = store.Set("llm.timeout", "soon")

	settings, err := NewSettingsService(store, "").Get()

	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalModeVector, settings.Retrieval.Mode)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMTimeout, settings.LLM.Timeout)
}

func TestSettingsService_Get_TimeoutInSeconds(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.timeout", 30)

	settings, err := NewSettingsService(store, "").Get()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, settings.LLM.Timeout)
}

func TestSettingsService_SaveAndGet_RoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, "/data")

	settings := domain.DefaultAppSettings()
	settings.Companies = []domain.CompanySource{{Name: "X", Path: "x.csv"}}
	settings.DataDir = "/other"
	settings.LLM.Temperature = 0.7
	settings.LLM.Timeout = 90 * time.Second
	settings.Retrieval.Mode = domain.RetrievalModeLexical
	settings.RateLimit.RequestsPerSecond = 0.5

	require.NoError(t, service.Save(&settings))
	got, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, settings.Companies, got.Companies)
	assert.Equal(t, "/other", got.DataDir)
	assert.InDelta(t, 0.7, got.LLM.Temperature, 1e-9)
	assert.Equal(t, 90*time.Second, got.LLM.Timeout)
	assert.Equal(t, domain.RetrievalModeLexical, got.Retrieval.Mode)
	assert.InDelta(t, 0.5, got.RateLimit.RequestsPerSecond, 1e-9)
	_, hasKey := store.Get("llm.api_key")
	assert.False(t, hasKey, "empty API keys are not written")
}

func TestSettingsService_SetCompany(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=a.csv"})
	service := NewSettingsService(store, "")

	require.NoError(t, service.SetCompany("B", "b.csv"))
	require.NoError(t, service.SetCompany("A", "a2.csv"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, []domain.CompanySource{{Name: "A", Path: "a2.csv"}, {Name: "B", Path: "b.csv"}}, settings.Companies)
}

func TestSettingsService_SetCompany_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "")

	tests := []struct {
		name, company, path string
	}{
		{"empty name", "", "a.csv"},
		{"separator in name", "A=B", "a.csv"},
		{"empty path", "A", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.SetCompany(tt.company, tt.path)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestSettingsService_RemoveCompany(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=a.csv", "B=b.csv"})
	service := NewSettingsService(store, "")

	require.NoError(t, service.RemoveCompany("A"))
	err := service.RemoveCompany("missing")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	settings, _ := service.Get()
	assert.Equal(t, []string{"B"}, settings.CompanyNames())
}

func TestSettingsService_RemoveLastCompany_StaysEmpty(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=a.csv"})
	service := NewSettingsService(store, "")

	require.NoError(t, service.RemoveCompany("A"))

	settings, _ := service.Get()
	assert.Empty(t, settings.Companies)
}

func TestSettingsService_SetRetrievalMode(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, "")

	require.NoError(t, service.SetRetrievalMode(domain.RetrievalModeHybrid))
	err := service.SetRetrievalMode("bogus")

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, "hybrid", store.GetString("retrieval.mode"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		wantModel string
		wantURL   string
		wantErr   bool
	}{
		{"ollama default model", domain.AIProviderOllama, "", "nomic-embed-text", "http://localhost:11434", false},
		{"openai explicit model", domain.AIProviderOpenAI, "text-embedding-3-small", "text-embedding-3-small", "", false},
		{"anthropic has no embeddings", domain.AIProviderAnthropic, "", "", "", true},
		{"unknown provider", "acme", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), "")

			err := service.SetEmbeddingProvider(tt.provider, tt.model)

			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			settings, _ := service.Get()
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "")

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, ""))
	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "qwen2.5"))
	settings, _ = service.Get()
	assert.Equal(t, "qwen2.5", settings.LLM.Model)
	assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider("acme", ""))
}

func TestSettingsService_Validate_Clean(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("text\n"), 0600))

	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=a.csv"})
	service := NewSettingsService(store, dir)
	service.SetCredentials(stubCredentials{key: "sk-test"})

	assert.Empty(t, service.Validate())
}

func TestSettingsService_Validate_ReportsProblems(t *testing.T) {
	dir := t.TempDir()
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{"A=missing.csv"})
	_ = store.Set("index.chunk_size", 100)
	_ = store.Set("index.chunk_overlap", 100)
	service := NewSettingsService(store, dir)
	service.SetCredentials(stubCredentials{err: errors.New("no key anywhere")})

	problems := service.Validate()

	require.Len(t, problems, 5)
	assert.Equal(t, "no key anywhere", problems[0])
	assert.Contains(t, problems[1], "A: source file not found")
	assert.Contains(t, problems[2], "chunk_overlap")
	assert.Contains(t, problems[3], "requires an embedding provider")
	assert.Contains(t, problems[4], "LLM provider openai")
}

func TestSettingsService_Validate_NoCompanies(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("companies", []string{})
	service := NewSettingsService(store, "")
	service.SetCredentials(stubCredentials{key: "k"})

	assert.Equal(t, []string{"no companies configured"}, service.Validate())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), "/d")

	defaults := service.GetDefaults()

	assert.Equal(t, "/d", defaults.DataDir)
	assert.Equal(t, domain.DefaultChunkSize, defaults.Index.ChunkSize)
}
