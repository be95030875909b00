package index

import "strconv"

// EntryMetadata is persisted alongside each vector so results can be
// attributed back to their source document.
type EntryMetadata struct {
	DocumentID  string
	SourceURI   string
	Language    string
	Ordinal     int
	ContentHash string
}

// Entry is one persisted (chunk, vector, metadata) tuple inside a
// language collection.
type Entry struct {
	ChunkID  string
	Text     string
	Vector   []float32
	Metadata EntryMetadata
}

// Result is one similarity match, ephemeral and per query.
type Result struct {
	ChunkID   string
	Text      string
	SourceURI string
	Language  string
	Score     float32
}

// metadataToMap flattens EntryMetadata for chromem, which stores
// map[string]string metadata.
func metadataToMap(m EntryMetadata) map[string]string {
	return map[string]string{
		"document_id":  m.DocumentID,
		"source_uri":   m.SourceURI,
		"language":     m.Language,
		"ordinal":      strconv.Itoa(m.Ordinal),
		"content_hash": m.ContentHash,
	}
}

// mapToMetadata restores EntryMetadata from chromem's flat map.
func mapToMetadata(m map[string]string) EntryMetadata {
	ordinal, _ := strconv.Atoi(m["ordinal"])
	return EntryMetadata{
		DocumentID:  m["document_id"],
		SourceURI:   m["source_uri"],
		Language:    m["language"],
		Ordinal:     ordinal,
		ContentHash: m["content_hash"],
	}
}
