package ingest

import "context"

// File is one enumerable document from a source. Bytes are fetched
// lazily so listing stays cheap and failures stay per-document.
type File struct {
	// URI identifies the document for attribution (local path or URL).
	URI string
	// Read fetches the raw bytes. contentType is set for remote files
	// whose URI carries no useful extension, empty otherwise.
	Read func(ctx context.Context) (data []byte, contentType string, err error)
}

// Source enumerates documents for ingestion.
type Source interface {
	// List returns the available files. A source that cannot be reached
	// returns an error; the pipeline logs it and continues with the
	// remaining sources.
	List(ctx context.Context) ([]File, error)
	// Name identifies the source in logs and reports.
	Name() string
}

// Report summarizes one ingestion run.
type Report struct {
	// Loaded counts documents chunked, embedded, and indexed.
	Loaded int `json:"documents_loaded"`
	// Skipped counts documents dropped for per-document reasons
	// (unsupported format, parse failure, empty text).
	Skipped int `json:"documents_skipped"`
	// Errors describes every skip and source failure.
	Errors []string `json:"errors,omitempty"`
}

// ProgressFunc is called as documents complete, for CLI progress bars.
type ProgressFunc func(done, total int, uri string)
