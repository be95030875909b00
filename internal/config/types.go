package config

// Language is an ISO 639-1 code for one of the supported knowledge-base
// languages.
type Language = string

// ProvidersConfig selects the LLM and embedding models.
type ProvidersConfig struct {
	Model          string  `yaml:"model" koanf:"model"`
	EmbeddingModel string  `yaml:"embedding_model" koanf:"embedding_model"`
	Temperature    float64 `yaml:"temperature" koanf:"temperature"`
	APIKeyEnv      string  `yaml:"api_key_env" koanf:"api_key_env"`
	MaxRetries     int     `yaml:"max_retries" koanf:"max_retries"`
	RequestsPerMin int     `yaml:"requests_per_min" koanf:"requests_per_min"`
}

// ChunkingConfig controls how document text is split into passages.
// Sizes are measured in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig controls query-time similarity search and context assembly.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k" koanf:"top_k"`
	ScoreThreshold     float32 `yaml:"score_threshold" koanf:"score_threshold"`
	ContextBudgetChars int     `yaml:"context_budget_chars" koanf:"context_budget_chars"`
}

// SessionConfig controls conversation memory.
type SessionConfig struct {
	MaxTurns int    `yaml:"max_turns" koanf:"max_turns"`
	DBPath   string `yaml:"db_path" koanf:"db_path"`
}

// LanguageConfig controls multilingual routing. Default is the language
// used when a request carries none and detection is too ambiguous to trust.
type LanguageConfig struct {
	Supported     []Language `yaml:"supported" koanf:"supported"`
	Default       Language   `yaml:"default" koanf:"default"`
	MinConfidence float64    `yaml:"min_confidence" koanf:"min_confidence"`
}

// SourcesConfig describes where documents are loaded from.
type SourcesConfig struct {
	LocalDir string   `yaml:"local_dir" koanf:"local_dir"`
	Include  []string `yaml:"include" koanf:"include"`
	Exclude  []string `yaml:"exclude" koanf:"exclude"`
	// ListURL is the remote listing endpoint; empty disables remote loading.
	ListURL string `yaml:"list_url" koanf:"list_url"`
	// CDNURL is the base URL remote files are fetched from.
	CDNURL string `yaml:"cdn_url" koanf:"cdn_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AuthToken      string   `yaml:"auth_token" koanf:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// Config is the top-level personarag configuration, corresponding to
// .personarag.yml.
type Config struct {
	Providers ProvidersConfig `yaml:"providers" koanf:"providers"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Session   SessionConfig   `yaml:"session" koanf:"session"`
	Language  LanguageConfig  `yaml:"language" koanf:"language"`
	Sources   SourcesConfig   `yaml:"sources" koanf:"sources"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Index     IndexConfig     `yaml:"index" koanf:"index"`
}
