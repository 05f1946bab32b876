// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/airlake/internal/metrics"
)

// DirStore serves objects from a local directory laid out like the bucket.
type DirStore struct {
	root string
}

// NewDirStore returns a DirStore rooted at root, which must be a directory.
func NewDirStore(root string) (*DirStore, error) {
	if root == "" {
		return nil, errors.New("source root directory is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}
	return &DirStore{root: root}, nil
}

// Fetch implements Store.
func (s *DirStore) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	rc, err := s.open(path)
	metrics.RecordFetch("dir", fetchResult(err), time.Since(start))
	return rc, err
}

func (s *DirStore) open(path string) (io.ReadCloser, error) {
	rel := filepath.FromSlash(path)
	if !filepath.IsLocal(rel) {
		return nil, &PermanentError{Path: path, Err: errors.New("path escapes source root")}
	}

	f, err := os.Open(filepath.Join(s.root, rel))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case err != nil:
		return nil, &PermanentError{Path: path, Err: err}
	}
	return f, nil
}
