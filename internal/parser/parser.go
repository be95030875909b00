// Package parser extracts plain text from raw document bytes. One parser
// implementation is registered per supported format; dispatch is by the
// Format tag, never by sniffing the payload.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF       Format = "pdf"
	FormatPlainText Format = "plaintext"
	FormatMarkdown  Format = "markdown"
)

// ErrUnsupportedFormat is returned for formats with no registered parser.
// Ingestion logs and skips such documents; it never aborts the batch.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// parseFunc extracts text from raw bytes of one format.
type parseFunc func(data []byte) (string, error)

// registry maps each supported format to its parser.
var registry = map[Format]parseFunc{
	FormatPDF:       parsePDF,
	FormatPlainText: parsePlainText,
	FormatMarkdown:  parseMarkdown,
}

// Parse extracts plain text from data using the parser registered for
// format.
func Parse(data []byte, format Format) (string, error) {
	fn, ok := registry[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", format, err)
	}
	return text, nil
}

// FormatForPath maps a file path's extension to its Format.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt":
		return FormatPlainText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FormatForContentType maps an HTTP Content-Type to its Format, for
// remote documents whose URL carries no extension.
func FormatForContentType(contentType string) (Format, error) {
	mime := contentType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	switch strings.TrimSpace(strings.ToLower(mime)) {
	case "application/pdf":
		return FormatPDF, nil
	case "text/plain":
		return FormatPlainText, nil
	case "text/markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
}
