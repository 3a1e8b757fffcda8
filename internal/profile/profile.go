package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the CLI.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, ollama, mock) use the same config shape.
	LLMProvider    string  // Provider identifier: openai, ollama, mock
	LLMAPIKey      string  // API key; "ollama" placeholder for local
	LLMBaseURL     string  // Base URL (optional, has default per provider)
	LLMModel       string  // Model name: gpt-4o-mini, mistral, etc.
	LLMTimeout     int     // LLM request timeout in seconds (default: 30)
	LLMMaxTokens   int     // Completion token budget (default: 500)
	LLMTemperature float64 // Sampling temperature (default: 0.7)

	// Suggestion cache configuration
	CacheEnabled bool
	CacheTTL     int // seconds (default: 3600)
	CacheSize    int // max entries (default: 1000)

	// A/B testing feature flag. When disabled the CLI always uses the
	// default prompt instead of requesting an assignment.
	ABTestingEnabled bool

	// Other configurations
	Mode    string // "prod" or "dev"
	Data    string // data directory, default ~/.synthscribe
	Driver  string // experiment storage driver (file, sqlite)
	DSN     string // sqlite data source name
	Version string
}

// Provider default configurations for LLM.
// Used when LLM_BASE_URL / LLM_MODEL are not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
	APIKey  string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "mistral",
		APIKey:  "ollama", // placeholder, local server ignores it
	},
	"mock": {
		Model: "mock",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("SYNTHSCRIBE_LLM_PROVIDER", "ollama")
	p.LLMAPIKey = getEnvOrDefault("SYNTHSCRIBE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("SYNTHSCRIBE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("SYNTHSCRIBE_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("SYNTHSCRIBE_LLM_TIMEOUT_SECONDS", 30)
	p.LLMMaxTokens = getEnvOrDefaultInt("SYNTHSCRIBE_LLM_MAX_TOKENS", 500)
	p.LLMTemperature = getEnvOrDefaultFloat("SYNTHSCRIBE_LLM_TEMPERATURE", 0.7)

	p.CacheEnabled = getEnvOrDefault("SYNTHSCRIBE_CACHE_ENABLED", "true") == "true"
	p.CacheTTL = getEnvOrDefaultInt("SYNTHSCRIBE_CACHE_TTL_SECONDS", 3600)
	p.CacheSize = getEnvOrDefaultInt("SYNTHSCRIBE_CACHE_MAX_SIZE", 1000)

	p.ABTestingEnabled = getEnvOrDefault("SYNTHSCRIBE_AB_TESTING_ENABLED", "true") == "true"

	// Validate and apply provider defaults if not explicitly set
	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: ollama", "provider", p.LLMProvider)
		p.LLMProvider = "ollama"
	}
	defaults := llmProviderDefaults[p.LLMProvider]
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = defaults.BaseURL
	}
	if p.LLMModel == "" {
		p.LLMModel = defaults.Model
	}
	if p.LLMAPIKey == "" {
		p.LLMAPIKey = defaults.APIKey
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fails fast on configuration that
// would only surface as a degenerate state later.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "unable to resolve home directory for default data dir")
		}
		p.Data = filepath.Join(home, ".synthscribe")
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", "data", p.Data, "error", err)
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "", "file":
		p.Driver = "file"
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("synthscribe_%s.db", p.Mode))
		}
	default:
		return errors.Errorf("unsupported storage driver %q (expected file or sqlite)", p.Driver)
	}

	if p.LLMProvider != "mock" && p.LLMAPIKey == "" {
		return errors.Errorf("LLM API key is required for provider %q", p.LLMProvider)
	}
	if p.LLMTemperature < 0 || p.LLMTemperature > 2 {
		return errors.Errorf("LLM temperature %.2f out of range [0, 2]", p.LLMTemperature)
	}

	return nil
}

// ExperimentsDir returns the directory used for experiment state.
func (p *Profile) ExperimentsDir() string {
	return filepath.Join(p.Data, "experiments")
}

// PreferencesPath returns the user preferences file location.
func (p *Profile) PreferencesPath() string {
	return filepath.Join(p.Data, "user_preferences.json")
}
