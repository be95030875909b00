// Package kb holds the knowledge-base domain types shared by ingestion,
// indexing, and retrieval.
package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is one ingested source document. Identity is the content hash:
// re-ingesting unchanged content yields the same Document ID, and changed
// content supersedes the old document rather than mutating it.
type Document struct {
	ID          string
	SourceURI   string
	Language    string
	Text        string
	ContentHash string
}

// Chunk is a bounded passage of a document's text, the retrieval unit.
// Chunks are produced deterministically from Document.Text; ordinals are
// contiguous from 0 within a document.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Language   string
}

// ContentHash returns the sha256 hex digest of the given text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives a stable chunk identifier from its document's content
// hash and the chunk ordinal, so unchanged documents produce identical
// chunk IDs across ingestion runs.
func ChunkID(contentHash string, ordinal int) string {
	return fmt.Sprintf("%s:%04d", contentHash[:16], ordinal)
}

// NewDocument builds a Document, computing its content hash and using the
// hash as the document ID.
func NewDocument(sourceURI, language, text string) Document {
	hash := ContentHash(text)
	return Document{
		ID:          hash,
		SourceURI:   sourceURI,
		Language:    language,
		Text:        text,
		ContentHash: hash,
	}
}
