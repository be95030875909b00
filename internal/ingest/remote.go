package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteSource enumerates documents from a listing endpoint and fetches
// their bytes from a CDN, the shape of the corpus's bucket-listing API:
// GET {listURL} returns {"files": ["en_cv.pdf", ...]} and each file is
// served at {cdnURL}/{name}.
type RemoteSource struct {
	listURL string
	cdnURL  string
	client  *http.Client
}

// NewRemoteSource creates a RemoteSource with a bounded request timeout.
func NewRemoteSource(listURL, cdnURL string, timeout time.Duration) *RemoteSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteSource{
		listURL: listURL,
		cdnURL:  strings.TrimRight(cdnURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *RemoteSource) Name() string { return "remote:" + s.listURL }

type listResponse struct {
	Files []string `json:"files"`
}

func (s *RemoteSource) List(ctx context.Context) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building listing request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing remote documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing remote documents: status %s", resp.Status)
	}

	var listing listResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding remote listing: %w", err)
	}

	files := make([]File, 0, len(listing.Files))
	for _, name := range listing.Files {
		url := s.cdnURL + "/" + strings.TrimLeft(name, "/")
		files = append(files, File{
			URI:  url,
			Read: func(ctx context.Context) ([]byte, string, error) { return s.fetch(ctx, url) },
		})
	}
	return files, nil
}

func (s *RemoteSource) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building fetch request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %s: status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
