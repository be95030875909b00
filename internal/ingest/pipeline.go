// Package ingest builds the vector index from all configured document
// sources. Each run re-populates the collections its sources touch, but
// never in place: documents are staged into shadow collections that swap
// in atomically once their language completes, so concurrent queries
// always see a consistent generation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/luisromp/personarag/internal/chunker"
	"github.com/luisromp/personarag/internal/embeddings"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/kb"
	"github.com/luisromp/personarag/internal/language"
	"github.com/luisromp/personarag/internal/parser"
)

// Pipeline drives sources through parsing, chunking, embedding, and
// staged index rebuilds.
type Pipeline struct {
	sources     []Source
	splitter    *chunker.Splitter
	embedder    embeddings.Embedder
	idx         *index.Index
	resolver    *language.Resolver
	concurrency int
	onProgress  ProgressFunc
}

// New creates a Pipeline. concurrency bounds parallel parse/chunk/embed
// work; values below 1 are clamped to 1.
func New(sources []Source, splitter *chunker.Splitter, embedder embeddings.Embedder, idx *index.Index, resolver *language.Resolver, concurrency int, onProgress ProgressFunc) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		sources:     sources,
		splitter:    splitter,
		embedder:    embedder,
		idx:         idx,
		resolver:    resolver,
		concurrency: concurrency,
		onProgress:  onProgress,
	}
}

// Run ingests every listed document. It is idempotent: unchanged sources
// produce identical chunk IDs and entry counts, because chunk identity
// derives from content hashes and ordinals. Per-document failures are
// logged, counted, and skipped; a single malformed document never aborts
// the batch. Only an unusable index or a canceled context fails the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	var files []File
	for _, src := range p.sources {
		listed, err := src.List(ctx)
		if err != nil {
			// A missing source degrades the run, it does not fail it:
			// the remaining sources still rebuild their collections.
			log.Printf("ingest: listing %s: %v", src.Name(), err)
			report.Errors = append(report.Errors, fmt.Sprintf("listing %s: %v", src.Name(), err))
			continue
		}
		files = append(files, listed...)
	}

	total := len(files)
	if total == 0 {
		log.Printf("ingest: no documents found")
		return report, nil
	}

	stagings := make(map[string]*index.Staging)
	var stagingMu sync.Mutex
	stagingFor := func(lang string) (*index.Staging, error) {
		stagingMu.Lock()
		defer stagingMu.Unlock()
		if st, ok := stagings[lang]; ok {
			return st, nil
		}
		st, err := p.idx.BeginRebuild(lang)
		if err != nil {
			return nil, err
		}
		stagings[lang] = st
		return st, nil
	}

	sem := make(chan struct{}, p.concurrency)
	var mu sync.Mutex
	var done int64
	var fatal error
	var wg sync.WaitGroup

	for _, file := range files {
		select {
		case <-ctx.Done():
			mu.Lock()
			if fatal == nil {
				fatal = ctx.Err()
			}
			mu.Unlock()
		case sem <- struct{}{}:
			wg.Add(1)
			go func(f File) {
				defer wg.Done()
				defer func() { <-sem }()

				err := p.ingestOne(ctx, f, stagingFor)
				mu.Lock()
				switch {
				case err == nil:
					report.Loaded++
				case errors.Is(err, index.ErrIndexUnavailable):
					if fatal == nil {
						fatal = err
					}
				default:
					log.Printf("ingest: skipping %s: %v", f.URI, err)
					report.Skipped++
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", f.URI, err))
				}
				mu.Unlock()

				count := atomic.AddInt64(&done, 1)
				if p.onProgress != nil {
					p.onProgress(int(count), total, f.URI)
				}
			}(file)
		}
		mu.Lock()
		stop := fatal != nil
		mu.Unlock()
		if stop {
			break
		}
	}
	wg.Wait()

	if fatal != nil {
		for lang, st := range stagings {
			if err := st.Abort(); err != nil {
				log.Printf("ingest: aborting staged rebuild of %q: %v", lang, err)
			}
		}
		return report, fatal
	}

	// Swap every touched language. Collections of languages no source
	// produced documents for stay on their previous generation.
	for lang, st := range stagings {
		staged := st.Count()
		if err := st.Swap(); err != nil {
			return report, fmt.Errorf("activating rebuilt collection for %q: %w", lang, err)
		}
		log.Printf("ingest: language %q active with %d entries", lang, staged)
	}

	return report, nil
}

// ingestOne loads, parses, chunks, embeds, and stages a single document.
func (p *Pipeline) ingestOne(ctx context.Context, f File, stagingFor func(string) (*index.Staging, error)) error {
	data, contentType, err := f.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	format, err := parser.FormatForPath(f.URI)
	if err != nil && contentType != "" {
		format, err = parser.FormatForContentType(contentType)
	}
	if err != nil {
		return err
	}

	text, err := parser.Parse(data, format)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty document")
	}

	lang := p.resolver.Resolve(f.URI, text)
	doc := kb.NewDocument(f.URI, lang, text)

	var chunks []kb.Chunk
	if format == parser.FormatMarkdown {
		chunks = p.splitter.SplitMarkdown(doc)
	} else {
		chunks = p.splitter.Split(doc)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			ChunkID: c.ID,
			Text:    c.Text,
			Vector:  vectors[i],
			Metadata: index.EntryMetadata{
				DocumentID:  doc.ID,
				SourceURI:   doc.SourceURI,
				Language:    lang,
				Ordinal:     c.Ordinal,
				ContentHash: doc.ContentHash,
			},
		}
	}

	st, err := stagingFor(lang)
	if err != nil {
		return err
	}
	return st.Upsert(ctx, entries)
}
