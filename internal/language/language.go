// Package language resolves which knowledge-base language a document or
// question belongs to. Routing order: explicit declaration, then
// detection, then the configured default. Detection below the confidence
// threshold is treated as unknown rather than guessed; the threshold and
// default are deliberate configuration points.
package language

import (
	"path"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Resolver maps free text and file names onto the supported language set.
type Resolver struct {
	supported     map[string]bool
	minConfidence float64
	defaultLang   string
}

// NewResolver creates a Resolver. Languages are ISO 639-1 codes; defaultLang
// must be one of supported.
func NewResolver(supported []string, minConfidence float64, defaultLang string) *Resolver {
	set := make(map[string]bool, len(supported))
	for _, l := range supported {
		set[strings.ToLower(l)] = true
	}
	return &Resolver{
		supported:     set,
		minConfidence: minConfidence,
		defaultLang:   strings.ToLower(defaultLang),
	}
}

// Default returns the language used when nothing else decides.
func (r *Resolver) Default() string { return r.defaultLang }

// Supported reports whether lang is a configured knowledge-base language.
func (r *Resolver) Supported(lang string) bool {
	return r.supported[strings.ToLower(lang)]
}

// Declared extracts a language declared by filename prefix, the corpus
// convention "en_cv.md" / "es_perfil.pdf". Returns "" when the name
// carries no supported prefix.
func (r *Resolver) Declared(uri string) string {
	name := strings.ToLower(path.Base(strings.ReplaceAll(uri, "\\", "/")))
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return ""
	}
	if prefix := name[:i]; r.supported[prefix] {
		return prefix
	}
	return ""
}

// Detect guesses the language of text, returning the default when the
// detector's confidence is below the configured threshold or the detected
// language is not in the supported set.
func (r *Resolver) Detect(text string) string {
	info := whatlanggo.Detect(text)
	if info.Confidence < r.minConfidence {
		return r.defaultLang
	}
	code := strings.ToLower(info.Lang.Iso6391())
	if !r.supported[code] {
		return r.defaultLang
	}
	return code
}

// Resolve picks the language for a document: declared prefix first, then
// detection over its text.
func (r *Resolver) Resolve(uri, text string) string {
	if lang := r.Declared(uri); lang != "" {
		return lang
	}
	return r.Detect(text)
}
