package config

// DefaultExcludes are glob patterns skipped when enumerating the local
// document directory.
var DefaultExcludes = []string{
	".git/**",
	"**/.DS_Store",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.5,
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxRetries:     3,
			RequestsPerMin: 60,
		},
		Chunking: ChunkingConfig{
			Size:    1400,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:               4,
			ScoreThreshold:     0.25,
			ContextBudgetChars: 8000,
		},
		Session: SessionConfig{
			MaxTurns: 20,
			DBPath:   "data/sessions.db",
		},
		Language: LanguageConfig{
			Supported:     []Language{"en", "es"},
			Default:       "en",
			MinConfidence: 0.6,
		},
		Sources: SourcesConfig{
			LocalDir: "docs",
			Include:  []string{"**/*.md", "**/*.txt", "**/*.pdf"},
			Exclude:  DefaultExcludes,
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Index: IndexConfig{
			Dir: "data/index",
		},
	}
}
