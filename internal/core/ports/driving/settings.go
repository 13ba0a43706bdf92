package driving

import "github.com/custodia-labs/pawclause/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetCompany adds or updates an insurer's source file.
	SetCompany(name, path string) error

	// RemoveCompany removes an insurer.
	RemoveCompany(name string) error

	// SetRetrievalMode updates the retrieval mode.
	SetRetrievalMode(mode domain.RetrievalMode) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model string) error

	// Validate reports configuration problems such as missing source files.
	Validate() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
