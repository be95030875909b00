package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// LocalSource enumerates documents under a directory, filtered by
// doublestar include/exclude globs against slash-separated relative
// paths.
type LocalSource struct {
	dir     string
	include []string
	exclude []string
}

// NewLocalSource creates a LocalSource. Empty include means everything.
func NewLocalSource(dir string, include, exclude []string) *LocalSource {
	return &LocalSource{dir: dir, include: include, exclude: exclude}
}

func (s *LocalSource) Name() string { return "local:" + s.dir }

func (s *LocalSource) List(_ context.Context) ([]File, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("document directory %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("document directory %s is not a directory", s.dir)
	}

	var files []File
	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !s.matches(rel) {
			return nil
		}

		p := path
		files = append(files, File{
			URI: p,
			Read: func(context.Context) ([]byte, string, error) {
				data, err := os.ReadFile(p)
				return data, "", err
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.dir, err)
	}

	return files, nil
}

func (s *LocalSource) matches(rel string) bool {
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
