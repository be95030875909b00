package kb

import (
	"strings"
	"testing"
)

func TestContentHashStable(t *testing.T) {
	a := ContentHash("hello world")
	b := ContentHash("hello world")
	if a != b {
		t.Errorf("same text produced different hashes: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if ContentHash("hello world") == ContentHash("hello world!") {
		t.Error("different text produced the same hash")
	}
}

func TestChunkID(t *testing.T) {
	hash := ContentHash("some document text")
	id := ChunkID(hash, 3)

	if !strings.HasPrefix(id, hash[:16]) {
		t.Errorf("chunk ID %q does not start with hash prefix %q", id, hash[:16])
	}
	if !strings.HasSuffix(id, ":0003") {
		t.Errorf("chunk ID %q does not end with zero-padded ordinal", id)
	}
	if ChunkID(hash, 3) != id {
		t.Error("chunk ID is not deterministic")
	}
}

func TestNewDocumentIdentityIsContentHash(t *testing.T) {
	doc := NewDocument("docs/en_cv.md", "en", "Some profile text.")

	if doc.ID != doc.ContentHash {
		t.Errorf("document ID %q differs from content hash %q", doc.ID, doc.ContentHash)
	}
	if doc.ID != ContentHash("Some profile text.") {
		t.Error("document ID does not match hash of its text")
	}

	same := NewDocument("docs/renamed.md", "en", "Some profile text.")
	if same.ID != doc.ID {
		t.Error("identical content under a different URI produced a different ID")
	}

	changed := NewDocument("docs/en_cv.md", "en", "Some profile text, updated.")
	if changed.ID == doc.ID {
		t.Error("changed content kept the old ID")
	}
}
