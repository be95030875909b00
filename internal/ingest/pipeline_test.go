package ingest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/luisromp/personarag/internal/chunker"
	"github.com/luisromp/personarag/internal/embeddings"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/language"
)

// mockEmbedder returns deterministic embeddings based on text content.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Name() string    { return "mock" }
func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%m.dims] += 1.0
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

// memSource serves fixed in-memory files.
type memSource struct {
	name  string
	files map[string]string // URI -> content
	err   error
}

func (s *memSource) Name() string { return s.name }

func (s *memSource) List(context.Context) ([]File, error) {
	if s.err != nil {
		return nil, s.err
	}
	var files []File
	for uri, content := range s.files {
		data := []byte(content)
		files = append(files, File{
			URI:  uri,
			Read: func(context.Context) ([]byte, string, error) { return data, "", nil },
		})
	}
	return files, nil
}

func newTestPipeline(t *testing.T, sources ...Source) (*Pipeline, *index.Index) {
	t.Helper()
	emb := &mockEmbedder{dims: 32}
	idx, err := index.Open(t.TempDir(), emb)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	resolver := language.NewResolver([]string{"en", "es"}, 0.6, "en")
	splitter := chunker.NewSplitter(200, 40)
	return New(sources, splitter, emb, idx, resolver, 2, nil), idx
}

func TestRunIngestsDocumentsPerLanguage(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_skills.md":  "# Skills\n\nGo, Rust, distributed systems.",
		"docs/es_perfil.txt": "Trabajé cinco años en una empresa de tecnología en Madrid.",
	}}
	p, idx := newTestPipeline(t, src)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Loaded != 2 {
		t.Errorf("Loaded = %d, want 2", report.Loaded)
	}
	if report.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", report.Skipped)
	}
	if count := idx.Count("en"); count == 0 {
		t.Error("english collection is empty")
	}
	if count := idx.Count("es"); count == 0 {
		t.Error("spanish collection is empty")
	}
}

func TestRunSkipsBrokenDocuments(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_good.txt": "A perfectly fine document with some real content in it.",
		"docs/photo.png":   "not ingestible",
		"docs/empty.txt":   "   \n  ",
	}}
	p, idx := newTestPipeline(t, src)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", report.Loaded)
	}
	if report.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", report.Skipped)
	}
	if len(report.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", report.Errors)
	}
	if count := idx.Count("en"); count == 0 {
		t.Error("good document was not indexed")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_cv.md": "# Profile\n\nI build storage systems.\n\n## Skills\n\nGo and SQL.",
	}}
	p, idx := newTestPipeline(t, src)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := idx.Count("en")
	if first == 0 {
		t.Fatal("first run indexed nothing")
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second := idx.Count("en"); second != first {
		t.Errorf("entry count changed across identical runs: %d then %d", first, second)
	}
}

func TestRunContinuesWhenOneSourceFails(t *testing.T) {
	broken := &memSource{name: "broken", err: errors.New("listing exploded")}
	good := &memSource{name: "good", files: map[string]string{
		"docs/en_note.txt": "Some content that should still make it into the index.",
	}}
	p, idx := newTestPipeline(t, broken, good)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Loaded != 1 {
		t.Errorf("Loaded = %d, want 1", report.Loaded)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v, want the listing failure", report.Errors)
	}
	if count := idx.Count("en"); count == 0 {
		t.Error("surviving source was not ingested")
	}
}

func TestRunEmptySourcesIsNoop(t *testing.T) {
	p, _ := newTestPipeline(t, &memSource{name: "mem", files: map[string]string{}})

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Loaded != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
}

func TestRunReplacesPreviousGeneration(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_cv.txt": "Original resume content, quite a bit of it in fact.",
	}}
	p, idx := newTestPipeline(t, src)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// The source shrinks to a different document; the rebuild must replace,
	// not accumulate.
	src.files = map[string]string{
		"docs/en_cv.txt": "Rewritten resume.",
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if count := idx.Count("en"); count != 1 {
		t.Errorf("Count = %d, want only the rewritten document's chunk", count)
	}
}

func TestRunReportsProgress(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_a.txt": "First document content goes here.",
		"docs/en_b.txt": "Second document content goes here.",
	}}

	var mu sync.Mutex
	var calls int
	var lastTotal int
	p, _ := newTestPipeline(t, src)
	p.onProgress = func(done, total int, uri string) {
		mu.Lock()
		calls++
		lastTotal = total
		mu.Unlock()
	}

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls != 2 {
		t.Errorf("progress callback ran %d times, want 2", calls)
	}
	if lastTotal != 2 {
		t.Errorf("progress total = %d, want 2", lastTotal)
	}
}

// All workers embed through the one retry wrapper the CLI builds, so a
// concurrent run over several documents must leave its counter exact.
func TestRunSharesRetryEmbedderAcrossWorkers(t *testing.T) {
	src := &memSource{name: "mem", files: map[string]string{
		"docs/en_one.txt":   "Go, Rust, distributed systems.",
		"docs/en_two.txt":   "Five years at a technology company.",
		"docs/en_three.txt": "Speaks English and Spanish fluently.",
		"docs/en_four.txt":  "Holds a degree in computer science.",
	}}

	retrying := embeddings.NewRetryEmbedder(&mockEmbedder{dims: 32}, 3, time.Millisecond)
	idx, err := index.Open(t.TempDir(), retrying)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	defer idx.Close()

	resolver := language.NewResolver([]string{"en", "es"}, 0.6, "en")
	p := New([]Source{src}, chunker.NewSplitter(200, 40), retrying, idx, resolver, 4, nil)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Loaded != 4 {
		t.Fatalf("Loaded = %d, want 4; errors: %v", report.Loaded, report.Errors)
	}
	if retrying.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", retrying.Attempts())
	}
}
