package ai

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

const envFileName = ".env"

// credentialSpec names where a provider's key may live.
type credentialSpec struct {
	envVar  string
	keyFile string
}

var credentialSpecs = map[domain.AIProvider]credentialSpec{
	domain.AIProviderOpenAI:    {envVar: "OPENAI_API_KEY", keyFile: "openaikey.txt"},
	domain.AIProviderAnthropic: {envVar: "ANTHROPIC_API_KEY", keyFile: "anthropickey.txt"},
}

// CredentialResolver finds provider API keys. Lookup order is the process
// environment, then a .env file, then a plain key file. Each directory in
// Dirs is searched in order for the two files.
type CredentialResolver struct {
	Dirs []string

	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string
}

// NewCredentialResolver searches the working directory followed by dirs.
func NewCredentialResolver(dirs ...string) *CredentialResolver {
	return &CredentialResolver{
		Dirs:   append([]string{"."}, dirs...),
		Getenv: os.Getenv,
	}
}

// Resolve returns the API key for provider. Providers that need no key
// resolve to "". A missing key is an ErrConfiguration naming every option.
func (r *CredentialResolver) Resolve(provider domain.AIProvider) (string, error) {
	spec, ok := credentialSpecs[provider]
	if !ok || !provider.RequiresAPIKey() {
		return "", nil
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if key := strings.TrimSpace(getenv(spec.envVar)); key != "" {
		return key, nil
	}

	for _, dir := range r.Dirs {
		env, err := godotenv.Read(filepath.Join(dir, envFileName))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("reading %s: %w", filepath.Join(dir, envFileName), err)
		}
		if key := strings.TrimSpace(env[spec.envVar]); key != "" {
			return key, nil
		}
	}

	for _, dir := range r.Dirs {
		data, err := os.ReadFile(filepath.Join(dir, spec.keyFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", filepath.Join(dir, spec.keyFile), err)
		}
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: %s API key not found; set %s, add it to a %s file, or write it to %s",
		domain.ErrConfiguration, provider, spec.envVar, envFileName, spec.keyFile)
}

// Apply fills empty API keys in settings for providers that require one.
// The embedding key is only required when the retrieval mode embeds queries.
func (r *CredentialResolver) Apply(settings *domain.AppSettings) error {
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider.RequiresAPIKey() &&
		settings.Retrieval.Mode.RequiresEmbedding() {
		key, err := r.Resolve(settings.Embedding.Provider)
		if err != nil {
			return err
		}
		settings.Embedding.APIKey = key
	}
	if settings.LLM.APIKey == "" && settings.LLM.Provider.RequiresAPIKey() {
		key, err := r.Resolve(settings.LLM.Provider)
		if err != nil {
			return err
		}
		settings.LLM.APIKey = key
	}
	return nil
}
