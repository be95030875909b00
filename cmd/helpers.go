package cmd

import (
	"fmt"
	"time"

	"github.com/luisromp/personarag/internal/chunker"
	"github.com/luisromp/personarag/internal/config"
	"github.com/luisromp/personarag/internal/embeddings"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/ingest"
	"github.com/luisromp/personarag/internal/language"
	"github.com/luisromp/personarag/internal/llm"
	"github.com/luisromp/personarag/internal/rag"
	"github.com/luisromp/personarag/internal/session"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg      *config.Config
	embedder embeddings.Embedder
	provider llm.Provider
	idx      *index.Index
	sessions *session.Store
	resolver *language.Resolver
	pipeline *rag.Pipeline
}

// buildApp loads configuration and constructs the component graph: the
// index and session store are opened once here and injected everywhere,
// never reached for as globals.
func buildApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("API key not set: export %s", cfg.Providers.APIKeyEnv)
	}

	embedder := embeddings.NewRetryEmbedder(
		embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.Providers.EmbeddingModel)),
		cfg.Providers.MaxRetries, time.Second)

	var provider llm.Provider = llm.NewOpenAIProvider(apiKey, cfg.Providers.Model)
	if cfg.Providers.RequestsPerMin > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.Providers.RequestsPerMin)
	}
	provider = llm.NewRetryProvider(provider, cfg.Providers.MaxRetries, time.Second)

	idx, err := index.Open(cfg.Index.Dir, embedder)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	sessions, err := session.Open(cfg.Session.DBPath, cfg.Session.MaxTurns)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	resolver := language.NewResolver(cfg.Language.Supported, cfg.Language.MinConfidence, cfg.Language.Default)

	pipeline := rag.New(idx, embedder, provider, sessions, resolver, rag.Options{
		TopK:               cfg.Retrieval.TopK,
		ScoreThreshold:     cfg.Retrieval.ScoreThreshold,
		ContextBudgetChars: cfg.Retrieval.ContextBudgetChars,
		Model:              cfg.Providers.Model,
		Temperature:        cfg.Providers.Temperature,
	})

	return &app{
		cfg:      cfg,
		embedder: embedder,
		provider: provider,
		idx:      idx,
		sessions: sessions,
		resolver: resolver,
		pipeline: pipeline,
	}, nil
}

// close releases the app's owned resources.
func (a *app) close() {
	a.sessions.Close()
	a.idx.Close()
}

// ingester builds the ingestion pipeline over the configured sources.
func (a *app) ingester(onProgress ingest.ProgressFunc) *ingest.Pipeline {
	var sources []ingest.Source
	if a.cfg.Sources.LocalDir != "" {
		sources = append(sources, ingest.NewLocalSource(a.cfg.Sources.LocalDir, a.cfg.Sources.Include, a.cfg.Sources.Exclude))
	}
	if a.cfg.Sources.ListURL != "" {
		sources = append(sources, ingest.NewRemoteSource(a.cfg.Sources.ListURL, a.cfg.Sources.CDNURL, 10*time.Second))
	}

	splitter := chunker.NewSplitter(a.cfg.Chunking.Size, a.cfg.Chunking.Overlap)
	return ingest.New(sources, splitter, a.embedder, a.idx, a.resolver, 4, onProgress)
}
