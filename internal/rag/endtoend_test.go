package rag

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/luisromp/personarag/internal/chunker"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/ingest"
	"github.com/luisromp/personarag/internal/language"
	"github.com/luisromp/personarag/internal/session"
)

// histEmbedder returns deterministic embeddings based on text content, so
// embedding the same text at ingest and query time scores similarity 1.
type histEmbedder struct {
	dims int
}

func (h *histEmbedder) Name() string    { return "hist" }
func (h *histEmbedder) Dimensions() int { return h.dims }

func (h *histEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%h.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

// fixedSource serves in-memory documents through the ingestion interface.
type fixedSource struct {
	files map[string]string
}

func (s *fixedSource) Name() string { return "fixed" }

func (s *fixedSource) List(context.Context) ([]ingest.File, error) {
	var files []ingest.File
	for uri, content := range s.files {
		data := []byte(content)
		files = append(files, ingest.File{
			URI:  uri,
			Read: func(context.Context) ([]byte, string, error) { return data, "", nil },
		})
	}
	return files, nil
}

// Runs the full path a served question takes: documents go through the
// ingestion pipeline into the vector index, and an answer comes back
// grounded in what was ingested.
func TestAnswerFromIngestedDocuments(t *testing.T) {
	ctx := context.Background()
	emb := &histEmbedder{dims: 64}

	idx, err := index.Open(t.TempDir(), emb)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	defer idx.Close()

	const skills = "Skills: Go, Rust, and distributed systems."
	src := &fixedSource{files: map[string]string{
		"docs/en_skills.txt": skills,
		"docs/es_perfil.txt": "Trabajé cinco años en una empresa de tecnología en Madrid.",
	}}
	resolver := language.NewResolver([]string{"en", "es"}, 0.6, "en")

	ing := ingest.New([]ingest.Source{src}, chunker.NewSplitter(200, 40), emb, idx, resolver, 4, nil)
	report, err := ing.Run(ctx)
	if err != nil {
		t.Fatalf("ingest Run: %v", err)
	}
	if report.Loaded != 2 {
		t.Fatalf("Loaded = %d, want 2; errors: %v", report.Loaded, report.Errors)
	}

	store, err := session.OpenMemory(20)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	provider := &scriptedProvider{outcomes: []providerOutcome{
		{content: "I know Go, Rust, and distributed systems."},
	}}
	opts := testOptions()
	opts.ScoreThreshold = 0.5
	p := New(idx, emb, provider, store, resolver, opts)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	// Asking with the document's own wording makes the deterministic
	// embedder rank that chunk first, well above the threshold.
	answer, err := p.Answer(ctx, "s1", skills, "en")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if !answer.Grounded {
		t.Error("expected an answer grounded in the ingested document")
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "docs/en_skills.txt" {
		t.Errorf("sources = %v, want [docs/en_skills.txt]", answer.Sources)
	}
	if answer.Text != "I know Go, Rust, and distributed systems." {
		t.Errorf("answer = %q", answer.Text)
	}

	if len(provider.requests) != 1 {
		t.Fatalf("got %d completion calls, want 1", len(provider.requests))
	}
	system := provider.requests[0].Messages[0].Content
	if !strings.Contains(system, skills) {
		t.Errorf("system prompt does not carry the retrieved chunk:\n%s", system)
	}
	if strings.Contains(system, "Madrid") {
		t.Error("english question must not retrieve from the spanish collection")
	}
}
