package index

import (
	"context"
	"fmt"
	"log"

	chromem "github.com/philippgille/chromem-go"
)

// Staging is a shadow collection being filled during a rebuild. Queries
// keep hitting the previous generation until Swap.
type Staging struct {
	ix   *Index
	lang string
	gen  int
	col  *chromem.Collection
}

// BeginRebuild creates the next-generation collection for a language and
// returns a staging handle to fill it. The active collection, if any,
// stays untouched until Swap.
func (ix *Index) BeginRebuild(lang string) (*Staging, error) {
	ix.mu.Lock()
	gen := ix.gens[lang] + 1
	ix.mu.Unlock()

	col, err := ix.db.GetOrCreateCollection(collectionName(lang, gen), nil, ix.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging collection for %q: %v", ErrIndexUnavailable, lang, err)
	}

	return &Staging{ix: ix, lang: lang, gen: gen, col: col}, nil
}

// Upsert inserts entries into the staging collection.
func (s *Staging) Upsert(ctx context.Context, entries []Entry) error {
	return s.ix.addEntries(ctx, s.col, s.lang, entries)
}

// Count returns the number of entries staged so far.
func (s *Staging) Count() int { return s.col.Count() }

// Swap atomically makes the staging collection the active one for its
// language and drops the superseded generation. After Swap the staging
// handle must not be used again.
func (s *Staging) Swap() error {
	s.ix.mu.Lock()
	oldGen, hadOld := s.ix.gens[s.lang]
	s.ix.active[s.lang] = s.col
	s.ix.gens[s.lang] = s.gen
	s.ix.mu.Unlock()

	if hadOld && oldGen != s.gen {
		if err := s.ix.db.DeleteCollection(collectionName(s.lang, oldGen)); err != nil {
			// The swap already happened; a leftover generation is cleaned
			// up on the next Open.
			log.Printf("index: dropping superseded collection %s: %v", collectionName(s.lang, oldGen), err)
		}
	}
	return nil
}

// Abort discards the staging collection, leaving the active one as-is.
func (s *Staging) Abort() error {
	if err := s.ix.db.DeleteCollection(collectionName(s.lang, s.gen)); err != nil {
		return fmt.Errorf("%w: aborting rebuild of %q: %v", ErrIndexUnavailable, s.lang, err)
	}
	return nil
}
