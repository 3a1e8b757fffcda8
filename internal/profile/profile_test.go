package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"SYNTHSCRIBE_LLM_PROVIDER",
		"SYNTHSCRIBE_LLM_API_KEY",
		"SYNTHSCRIBE_LLM_BASE_URL",
		"SYNTHSCRIBE_LLM_MODEL",
		"SYNTHSCRIBE_LLM_TIMEOUT_SECONDS",
		"SYNTHSCRIBE_LLM_MAX_TOKENS",
		"SYNTHSCRIBE_LLM_TEMPERATURE",
		"SYNTHSCRIBE_CACHE_ENABLED",
		"SYNTHSCRIBE_CACHE_TTL_SECONDS",
		"SYNTHSCRIBE_CACHE_MAX_SIZE",
		"SYNTHSCRIBE_AB_TESTING_ENABLED",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	if profile.LLMProvider != "ollama" {
		t.Errorf("LLMProvider default: expected ollama, got %q", profile.LLMProvider)
	}
	if profile.LLMBaseURL != "http://localhost:11434/v1" {
		t.Errorf("LLMBaseURL default: expected ollama endpoint, got %q", profile.LLMBaseURL)
	}
	if profile.LLMModel != "mistral" {
		t.Errorf("LLMModel default: expected mistral, got %q", profile.LLMModel)
	}
	if profile.LLMAPIKey != "ollama" {
		t.Errorf("LLMAPIKey default: expected ollama placeholder, got %q", profile.LLMAPIKey)
	}
	if profile.LLMTimeout != 30 {
		t.Errorf("LLMTimeout default: expected 30, got %d", profile.LLMTimeout)
	}
	if !profile.CacheEnabled {
		t.Error("CacheEnabled should default to true")
	}
	if !profile.ABTestingEnabled {
		t.Error("ABTestingEnabled should default to true")
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("SYNTHSCRIBE_LLM_PROVIDER", "openai")
	t.Setenv("SYNTHSCRIBE_LLM_API_KEY", "test-key")
	t.Setenv("SYNTHSCRIBE_LLM_TEMPERATURE", "0.2")
	t.Setenv("SYNTHSCRIBE_CACHE_ENABLED", "false")

	profile := &Profile{}
	profile.FromEnv()

	if profile.LLMProvider != "openai" {
		t.Errorf("expected openai provider, got %q", profile.LLMProvider)
	}
	if profile.LLMBaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected openai default base URL, got %q", profile.LLMBaseURL)
	}
	if profile.LLMModel != "gpt-4o-mini" {
		t.Errorf("expected openai default model, got %q", profile.LLMModel)
	}
	if profile.LLMAPIKey != "test-key" {
		t.Errorf("expected explicit API key, got %q", profile.LLMAPIKey)
	}
	if profile.LLMTemperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %g", profile.LLMTemperature)
	}
	if profile.CacheEnabled {
		t.Error("expected cache disabled")
	}
}

func TestProfileUnknownProviderFallsBack(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("SYNTHSCRIBE_LLM_PROVIDER", "frontier-x")

	profile := &Profile{}
	profile.FromEnv()

	if profile.LLMProvider != "ollama" {
		t.Errorf("unknown provider should fall back to ollama, got %q", profile.LLMProvider)
	}
}

func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	profile := &Profile{
		Mode:        "dev",
		Data:        dir,
		LLMProvider: "mock",
	}
	if err := profile.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if profile.Driver != "file" {
		t.Errorf("expected file driver default, got %q", profile.Driver)
	}
	if profile.ExperimentsDir() != filepath.Join(dir, "experiments") {
		t.Errorf("unexpected experiments dir %q", profile.ExperimentsDir())
	}

	// sqlite driver gets a mode-scoped default DSN.
	profile = &Profile{Mode: "prod", Data: dir, Driver: "sqlite", LLMProvider: "mock"}
	if err := profile.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if profile.DSN != filepath.Join(dir, "synthscribe_prod.db") {
		t.Errorf("unexpected sqlite DSN %q", profile.DSN)
	}

	// Unsupported drivers fail fast.
	profile = &Profile{Data: dir, Driver: "redis", LLMProvider: "mock"}
	if err := profile.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}

	// Missing API key fails fast unless the provider is mock.
	profile = &Profile{Data: dir, LLMProvider: "openai"}
	if err := profile.Validate(); err == nil {
		t.Error("expected error for missing API key")
	}

	// Out-of-range temperature fails fast.
	profile = &Profile{Data: dir, LLMProvider: "mock", LLMTemperature: 5}
	if err := profile.Validate(); err == nil {
		t.Error("expected error for out-of-range temperature")
	}
}
