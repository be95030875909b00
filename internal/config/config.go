package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PERSONARAG_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: PERSONARAG_SERVER_PORT -> server.port, etc.
	if err := k.Load(env.Provider("PERSONARAG_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "PERSONARAG_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Providers.Model == "" {
		return fmt.Errorf("providers.model is required")
	}
	if c.Providers.EmbeddingModel == "" {
		return fmt.Errorf("providers.embedding_model is required")
	}
	if c.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers.max_retries must be non-negative")
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, chunking.size)")
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.ScoreThreshold < -1 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval.score_threshold must be a cosine similarity in [-1, 1]")
	}
	if c.Retrieval.ContextBudgetChars <= 0 {
		return fmt.Errorf("retrieval.context_budget_chars must be positive")
	}

	if c.Session.MaxTurns <= 0 {
		return fmt.Errorf("session.max_turns must be positive")
	}

	if len(c.Language.Supported) == 0 {
		return fmt.Errorf("language.supported must list at least one language")
	}
	if !c.IsSupported(c.Language.Default) {
		return fmt.Errorf("language.default %q is not in language.supported", c.Language.Default)
	}
	if c.Language.MinConfidence < 0 || c.Language.MinConfidence > 1 {
		return fmt.Errorf("language.min_confidence must be in [0, 1]")
	}

	if c.Sources.LocalDir == "" && c.Sources.ListURL == "" {
		return fmt.Errorf("at least one of sources.local_dir and sources.list_url is required")
	}
	if c.Sources.ListURL != "" && c.Sources.CDNURL == "" {
		return fmt.Errorf("sources.cdn_url is required when sources.list_url is set")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}

	if c.Index.Dir == "" {
		return fmt.Errorf("index.dir is required")
	}

	return nil
}

// IsSupported reports whether lang is one of the configured knowledge-base
// languages.
func (c *Config) IsSupported(lang Language) bool {
	for _, l := range c.Language.Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.Providers.APIKeyEnv)
}
