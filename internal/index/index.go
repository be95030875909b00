// Package index is the persistent, language-partitioned vector store.
// Each language owns one active chromem collection; rebuilds write into a
// fresh generation and atomically swap the active pointer, so queries
// never observe a half-populated collection.
//
// Similarity is cosine, chromem-go's metric, and scores feed the
// retrieval threshold directly. Equal-score results keep insertion order.
package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/luisromp/personarag/internal/embeddings"
)

// ErrIndexUnavailable is returned when the backing store cannot be
// reached or refuses an operation. It is fatal for the request: answering
// without grounding infrastructure would invite fabricated answers.
var ErrIndexUnavailable = errors.New("index: unavailable")

const collectionPrefix = "kb_"

// Index is a language-partitioned vector store over chromem-go.
type Index struct {
	db        *chromem.DB
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc

	mu     sync.RWMutex
	active map[string]*chromem.Collection
	gens   map[string]int
}

// Open opens (or creates) the persistent index under dir. Existing
// collections are discovered by name; when a crashed rebuild left several
// generations for one language, the newest wins and the rest are removed.
func Open(dir string, embedder embeddings.Embedder) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("%w: opening store at %s: %v", ErrIndexUnavailable, dir, err)
	}

	ix := &Index{
		db:        db,
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
		active:    make(map[string]*chromem.Collection),
		gens:      make(map[string]int),
	}

	var stale []string
	for name := range db.ListCollections() {
		lang, gen, ok := parseCollectionName(name)
		if !ok {
			continue
		}
		if cur, exists := ix.gens[lang]; exists {
			if gen <= cur {
				stale = append(stale, collectionName(lang, gen))
				continue
			}
			stale = append(stale, collectionName(lang, cur))
		}
		ix.gens[lang] = gen
	}
	for lang, gen := range ix.gens {
		col := db.GetCollection(collectionName(lang, gen), ix.embedFunc)
		if col == nil {
			return nil, fmt.Errorf("%w: collection %s vanished during open", ErrIndexUnavailable, collectionName(lang, gen))
		}
		ix.active[lang] = col
	}
	for _, name := range stale {
		if err := db.DeleteCollection(name); err != nil {
			log.Printf("index: removing stale collection %s: %v", name, err)
		}
	}

	return ix, nil
}

// Close releases the index. chromem persists synchronously on write, so
// there is nothing to flush; the method exists so the index has an
// explicit lifecycle for its owners.
func (ix *Index) Close() error { return nil }

// Dimensions returns the vector dimensionality every entry must have.
func (ix *Index) Dimensions() int { return ix.embedder.Dimensions() }

// Languages lists the languages with an active collection.
func (ix *Index) Languages() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	langs := make([]string, 0, len(ix.active))
	for lang := range ix.active {
		langs = append(langs, lang)
	}
	return langs
}

// Count returns the number of entries in a language's active collection,
// zero when the language has none.
func (ix *Index) Count(lang string) int {
	ix.mu.RLock()
	col := ix.active[lang]
	ix.mu.RUnlock()
	if col == nil {
		return 0
	}
	return col.Count()
}

// Upsert inserts entries into the language's active collection, creating
// it when absent. Re-inserting a chunk ID replaces the prior entry.
func (ix *Index) Upsert(ctx context.Context, lang string, entries []Entry) error {
	ix.mu.Lock()
	col := ix.active[lang]
	if col == nil {
		var err error
		col, err = ix.db.GetOrCreateCollection(collectionName(lang, 1), nil, ix.embedFunc)
		if err != nil {
			ix.mu.Unlock()
			return fmt.Errorf("%w: creating collection for %q: %v", ErrIndexUnavailable, lang, err)
		}
		ix.active[lang] = col
		ix.gens[lang] = 1
	}
	ix.mu.Unlock()

	return ix.addEntries(ctx, col, lang, entries)
}

// Query returns at most k entries from the language's active collection
// whose cosine similarity to vector meets or exceeds threshold, ordered
// by non-increasing score. Ties keep chromem's insertion order; no
// secondary key reorders them. A language with no collection yields no
// results, which callers treat as "no grounding", not as an outage.
func (ix *Index) Query(ctx context.Context, lang string, vector []float32, k int, threshold float32) ([]Result, error) {
	if len(vector) != ix.Dimensions() {
		return nil, fmt.Errorf("index: query vector has %d dimensions, want %d", len(vector), ix.Dimensions())
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	col := ix.active[lang]
	ix.mu.RUnlock()
	if col == nil {
		return nil, nil
	}

	// chromem requires nResults <= collection size.
	limit := k
	if count := col.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	matches, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %q: %v", ErrIndexUnavailable, lang, err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < threshold {
			continue
		}
		meta := mapToMetadata(m.Metadata)
		results = append(results, Result{
			ChunkID:   m.ID,
			Text:      m.Content,
			SourceURI: meta.SourceURI,
			Language:  meta.Language,
			Score:     m.Similarity,
		})
	}
	return results, nil
}

func (ix *Index) addEntries(ctx context.Context, col *chromem.Collection, lang string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if len(e.Vector) != ix.Dimensions() {
			return fmt.Errorf("index: entry %s has %d dimensions, want %d", e.ChunkID, len(e.Vector), ix.Dimensions())
		}
		meta := e.Metadata
		meta.Language = lang
		docs[i] = chromem.Document{
			ID:        e.ChunkID,
			Content:   e.Text,
			Embedding: e.Vector,
			Metadata:  metadataToMap(meta),
		}
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: upserting %d entries into %q: %v", ErrIndexUnavailable, len(entries), lang, err)
	}
	return nil
}

func collectionName(lang string, gen int) string {
	return collectionPrefix + lang + "_g" + strconv.Itoa(gen)
}

func parseCollectionName(name string) (lang string, gen int, ok bool) {
	rest, found := strings.CutPrefix(name, collectionPrefix)
	if !found {
		return "", 0, false
	}
	i := strings.LastIndex(rest, "_g")
	if i <= 0 {
		return "", 0, false
	}
	gen, err := strconv.Atoi(rest[i+2:])
	if err != nil || gen < 1 {
		return "", 0, false
	}
	return rest[:i], gen, true
}
