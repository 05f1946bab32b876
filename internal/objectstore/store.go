// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package objectstore fetches archive objects by path from the public
// air-quality bucket over HTTP or from a local mirror directory.
//
// Every backend classifies failures the same way so the extractor can decide
// what to retry:
//
//   - ErrNotFound: the object does not exist (sparse coverage); never retried
//   - *TransientError: network failures, 5xx, 429, open circuit; retried
//   - *PermanentError: anything else; recorded and not retried
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/airlake/internal/config"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store fetches objects by slash-separated path relative to its root.
// The caller closes the returned reader.
type Store interface {
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// TransientError is a failure worth retrying.
type TransientError struct {
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error fetching %s: status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient error fetching %s: %v", e.Path, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError is a failure that will not go away by retrying.
type PermanentError struct {
	Path       string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error fetching %s: status %d: %v", e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("error fetching %s: %v", e.Path, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a *TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// New builds the store selected by cfg.Kind.
func New(cfg *config.SourceConfig) (Store, error) {
	switch cfg.Kind {
	case "http", "":
		return NewHTTPStore(cfg)
	case "dir":
		return NewDirStore(cfg.Root)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
