package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if this provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// CacheNamespace identifies vectors produced by this provider and model.
func (e EmbeddingSettings) CacheNamespace() string {
	return string(e.Provider) + "_" + e.Model
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls randomness of answers.
	Temperature float64

	// MaxTokens bounds the answer length.
	MaxTokens int

	// Timeout bounds a single LLM call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings controls how documents are chunked and embedded.
type IndexSettings struct {
	// ChunkSize is the chunk window in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per batch.
	BatchSize int

	// TextFields lists source columns to take passage text from, in priority order.
	TextFields []string
}

// RetrievalSettings controls query-time retrieval.
type RetrievalSettings struct {
	// Mode selects vector, lexical or hybrid ranking.
	Mode RetrievalMode

	// TopK is the number of chunks retrieved per company.
	TopK int

	// Parallel fans retrieval out across companies.
	Parallel bool
}

// RateLimitSettings bounds outbound calls to AI providers.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained request rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed at once.
	Burst int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Companies are the configured insurers in display order.
	Companies []CompanySource

	// DataDir holds source files, the embedding cache and the feedback database.
	DataDir string

	// StopTermsPath is the stop-term file used by the query guard.
	StopTermsPath string

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Index holds indexing settings.
	Index IndexSettings

	// Retrieval holds retrieval settings.
	Retrieval RetrievalSettings

	// RateLimit holds outbound rate limiting settings.
	RateLimit RateLimitSettings
}

// CompanyNames returns configured company names in order.
func (s AppSettings) CompanyNames() []string {
	names := make([]string, len(s.Companies))
	for i, c := range s.Companies {
		names[i] = c.Name
	}
	return names
}

// Defaults.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultBatchSize      = 50
	DefaultTopK           = 5
	DefaultTemperature    = 0.1
	DefaultMaxTokens      = 1500
	DefaultLLMTimeout     = 60 * time.Second
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultLLMModel       = "gpt-4o-mini"
)

// DefaultTextFields returns the column names tried for passage text, in order.
func DefaultTextFields() []string {
	return []string{"chunk_text", "text", "content", "claim_sentence", "preview", "data", "document"}
}

// DefaultCompanies returns the insurers shipped with the default configuration.
// Paths are relative to the data directory.
func DefaultCompanies() []CompanySource {
	return []CompanySource{
		{Name: "삼성화재_애니펫", Path: "삼성화재_반려견보험_애니펫.csv"},
		{Name: "삼성화재_위풍댕댕", Path: "삼성화재_위풍댕댕.csv"},
		{Name: "삼성화재_착한펫", Path: "삼성화재_착한펫보험.csv"},
		{Name: "현대해상_굿앤굿우리펫보험", Path: "현대해상_굿앤굿우리펫보험.csv"},
		{Name: "KB다이렉트_금쪽같은_펫보험", Path: "KBdirect_금쪽같은_펫보험.csv"},
		{Name: "메리츠화재_펫퍼민트", Path: "meritz_펫퍼민트.csv"},
		{Name: "DB손해보험_다이렉트_펫블리_반려견보험", Path: "DB손해보험_다이렉트_펫블리_반려견보험.csv"},
		{Name: "하나펫사랑보험", Path: "하나펫사랑보험.csv"},
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty; they are resolved from the environment at startup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Companies: DefaultCompanies(),
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModel,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultLLMTimeout,
		},
		Index: IndexSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			BatchSize:    DefaultBatchSize,
			TextFields:   DefaultTextFields(),
		},
		Retrieval: RetrievalSettings{
			Mode: RetrievalModeVector,
			TopK: DefaultTopK,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 5,
			Burst:             5,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: DefaultEmbeddingModel,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    DefaultLLMModel,
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"bge-m3":            1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
