package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCompanies       = "companies"
	keyDataDir         = "data.dir"
	keyStopTerms       = "guard.stopwords"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTimeout      = "llm.timeout"
	keyChunkSize       = "index.chunk_size"
	keyChunkOverlap    = "index.chunk_overlap"
	keyBatchSize       = "index.batch_size"
	keyTextFields      = "index.text_fields"
	keyRetrievalMode   = "retrieval.mode"
	keyRetrievalTopK   = "retrieval.top_k"
	keyRetrievalPar    = "retrieval.parallel"
	keyRateLimitRPS    = "ratelimit.requests_per_second"
	keyRateLimitBurst  = "ratelimit.burst"
	companySeparator   = "="
	defaultOllamaURL   = "http://localhost:11434"
	stopTermsFileName  = "stopwords.txt"
	configuredNotFound = "source file not found"
)

// CredentialApplier fills API keys from outside the config file.
type CredentialApplier interface {
	Apply(settings *domain.AppSettings) error
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore    driven.ConfigStore
	defaultDataDir string
	credentials    CredentialApplier
}

// NewSettingsService creates a new settings service.
// defaultDataDir is used when data.dir is not configured.
func NewSettingsService(configStore driven.ConfigStore, defaultDataDir string) *SettingsService {
	return &SettingsService{
		configStore:    configStore,
		defaultDataDir: defaultDataDir,
	}
}

// SetCredentials sets the resolver consulted by Validate and Resolved.
func (s *SettingsService) SetCredentials(c CredentialApplier) {
	s.credentials = c
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	settings := &domain.AppSettings{
		Companies:     s.getCompanies(defaults.Companies),
		DataDir:       s.getString(keyDataDir, defaults.DataDir),
		StopTermsPath: s.configStore.GetString(keyStopTerms),
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			Timeout:     s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
		},
		Index: domain.IndexSettings{
			ChunkSize:    s.getInt(keyChunkSize, defaults.Index.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, defaults.Index.ChunkOverlap),
			BatchSize:    s.getInt(keyBatchSize, defaults.Index.BatchSize),
			TextFields:   s.getStringSlice(keyTextFields, defaults.Index.TextFields),
		},
		Retrieval: domain.RetrievalSettings{
			Mode:     s.getRetrievalMode(defaults.Retrieval.Mode),
			TopK:     s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			Parallel: s.getBool(keyRetrievalPar, defaults.Retrieval.Parallel),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateLimitRPS, defaults.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateLimitBurst, defaults.RateLimit.Burst),
		},
	}

	// Models default per provider, so a provider switch without a model
	// does not keep the other provider's model name.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.StopTermsPath == "" && settings.DataDir != "" {
		settings.StopTermsPath = filepath.Join(settings.DataDir, stopTermsFileName)
	}

	return settings, nil
}

// Resolved returns the settings with credentials applied. On a credential
// error the settings are still returned with whatever keys were found.
func (s *SettingsService) Resolved() (*domain.AppSettings, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	if s.credentials != nil {
		if err := s.credentials.Apply(settings); err != nil {
			return settings, err
		}
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	companies := make([]string, len(settings.Companies))
	for i, c := range settings.Companies {
		companies[i] = c.Name + companySeparator + c.Path
	}

	values := []struct {
		key string
		val any
	}{
		{keyCompanies, companies},
		{keyDataDir, settings.DataDir},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyChunkSize, settings.Index.ChunkSize},
		{keyChunkOverlap, settings.Index.ChunkOverlap},
		{keyBatchSize, settings.Index.BatchSize},
		{keyTextFields, settings.Index.TextFields},
		{keyRetrievalMode, settings.Retrieval.Mode.String()},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalPar, settings.Retrieval.Parallel},
		{keyRateLimitRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateLimitBurst, settings.RateLimit.Burst},
	}
	if settings.StopTermsPath != "" {
		values = append(values, struct {
			key string
			val any
		}{keyStopTerms, settings.StopTermsPath})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set explicitly.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetCompany adds or updates an insurer's source file.
func (s *SettingsService) SetCompany(name, path string) error {
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if name == "" || strings.Contains(name, companySeparator) {
		return fmt.Errorf("%w: invalid company name %q", domain.ErrInvalidInput, name)
	}
	if path == "" {
		return fmt.Errorf("%w: company %s needs a source file", domain.ErrInvalidInput, name)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	updated := false
	for i := range settings.Companies {
		if settings.Companies[i].Name == name {
			settings.Companies[i].Path = path
			updated = true
		}
	}
	if !updated {
		settings.Companies = append(settings.Companies, domain.CompanySource{Name: name, Path: path})
	}

	return s.Save(settings)
}

// RemoveCompany removes an insurer.
func (s *SettingsService) RemoveCompany(name string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	kept := settings.Companies[:0:0]
	for _, c := range settings.Companies {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(settings.Companies) {
		return fmt.Errorf("%w: company %q", domain.ErrNotFound, name)
	}
	settings.Companies = kept

	return s.Save(settings)
}

// SetRetrievalMode updates the retrieval mode.
func (s *SettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: invalid retrieval mode: %s", domain.ErrInvalidInput, mode)
	}
	return s.set(keyRetrievalMode, mode.String())
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Local providers need a base URL; cloud providers use their default.
	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	return s.Save(settings)
}

// Validate reports configuration problems such as missing source files.
// An empty result means the settings are usable.
func (s *SettingsService) Validate() []string {
	var problems []string
	settings, err := s.Resolved()
	if settings == nil {
		return []string{err.Error()}
	}
	if err != nil {
		problems = append(problems, err.Error())
	}

	if len(settings.Companies) == 0 {
		problems = append(problems, "no companies configured")
	}
	for _, c := range settings.Companies {
		path := c.Path
		if !filepath.IsAbs(path) && settings.DataDir != "" {
			path = filepath.Join(settings.DataDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s: %s", c.Name, configuredNotFound, path))
		}
	}

	if settings.Index.ChunkSize <= 0 {
		problems = append(problems, "index.chunk_size must be positive")
	} else if settings.Index.ChunkOverlap >= settings.Index.ChunkSize {
		problems = append(problems, "index.chunk_overlap must be smaller than index.chunk_size")
	}
	if settings.Index.BatchSize <= 0 {
		problems = append(problems, "index.batch_size must be positive")
	}
	if settings.Retrieval.TopK <= 0 {
		problems = append(problems, "retrieval.top_k must be positive")
	}

	if settings.Retrieval.Mode.RequiresEmbedding() && !settings.Embedding.IsConfigured() {
		problems = append(problems, fmt.Sprintf(
			"retrieval mode %s requires an embedding provider; %s is not configured",
			settings.Retrieval.Mode, settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		problems = append(problems, fmt.Sprintf("LLM provider %s is not configured", settings.LLM.Provider))
	}

	return problems
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	defaults.DataDir = s.defaultDataDir
	return defaults
}

func (s *SettingsService) set(key string, val any) error {
	if err := s.configStore.Set(key, val); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

// getDuration accepts "45s" style strings or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if str := s.configStore.GetString(key); str != "" {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d
		}
		return defaultVal
	}
	if secs := s.configStore.GetFloat(key); secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}

func (s *SettingsService) getRetrievalMode(defaultVal domain.RetrievalMode) domain.RetrievalMode {
	mode := domain.RetrievalMode(s.configStore.GetString(keyRetrievalMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// getCompanies parses "name=path" entries. Malformed entries are skipped.
func (s *SettingsService) getCompanies(defaultVal []domain.CompanySource) []domain.CompanySource {
	if _, exists := s.configStore.Get(keyCompanies); !exists {
		return defaultVal
	}
	var companies []domain.CompanySource
	for _, entry := range s.configStore.GetStringSlice(keyCompanies) {
		name, path, ok := strings.Cut(entry, companySeparator)
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			continue
		}
		companies = append(companies, domain.CompanySource{Name: name, Path: path})
	}
	return companies
}
