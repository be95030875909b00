// Package chunker splits document text into overlapping passages sized
// for embedding. Splitting is deterministic: the same text always yields
// the same chunk boundaries and ordinals, which keeps re-ingestion
// idempotent.
package chunker

import (
	"strings"

	"github.com/luisromp/personarag/internal/kb"
)

// DefaultSize is the default chunk window in characters.
const DefaultSize = 1400

// DefaultOverlap is the default overlap between consecutive chunks.
const DefaultOverlap = 200

// Splitter produces overlapping chunks from document text, preferring to
// cut at paragraph breaks, then sentence ends, then word boundaries.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a Splitter with the given window size and overlap,
// both in characters. Invalid values fall back to defaults; overlap is
// clamped below the window size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split chunks a document's text into overlapping windows. Documents
// shorter than one window yield exactly one chunk; empty documents yield
// no chunks.
func (s *Splitter) Split(doc kb.Document) []kb.Chunk {
	return s.assemble(doc, s.windows(doc.Text))
}

// windows splits a single run of text into window-sized pieces.
func (s *Splitter) windows(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}

		if end >= len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return pieces
}

// assemble attaches document identity and contiguous ordinals to windowed
// text pieces.
func (s *Splitter) assemble(doc kb.Document, pieces []string) []kb.Chunk {
	if len(pieces) == 0 {
		return nil
	}
	chunks := make([]kb.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = kb.Chunk{
			ID:         kb.ChunkID(doc.ContentHash, i),
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       piece,
			Language:   doc.Language,
		}
	}
	return chunks
}

// cutPoint picks where to end the window [start, limit), searching
// backwards for the most natural boundary: a paragraph break, then a
// sentence end, then a word boundary. Boundaries in the first half of the
// window are ignored so chunks never collapse to fragments; with no usable
// boundary the window is cut hard at limit.
func cutPoint(runes []rune, start, limit int) int {
	half := start + (limit-start)/2

	// Paragraph break: blank line.
	for i := limit - 1; i > half; i-- {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// Sentence end followed by whitespace.
	for i := limit - 2; i > half; i-- {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			return i + 1
		}
	}

	// Any whitespace.
	for i := limit - 1; i > half; i-- {
		if isSpace(runes[i]) {
			return i + 1
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
