// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/logging"
)

var (
	// ErrDatabaseExists is returned by Create when the file exists and
	// AllowExisting is false. The existing file is left untouched.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrDatabaseNotFound is returned by Open when the file is absent.
	ErrDatabaseNotFound = errors.New("database not found")
)

// Create creates the database file at cfg.Path and applies every schema
// script in scripts in filename order.
//
// With cfg.AllowExisting false an existing file is an error. With it true
// Create is idempotent: scripts already recorded in the schema ledger are
// skipped. A failing script stops the pass with a *ScriptError and leaves
// whatever earlier scripts created in place.
func Create(ctx context.Context, cfg *config.DatabaseConfig, scripts fs.FS) (*DB, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	exists, err := fileExists(cfg.Path)
	if err != nil {
		return nil, err
	}
	if exists && !cfg.AllowExisting {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseExists, cfg.Path)
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := open(cfg, ReadWrite)
	if err != nil {
		return nil, err
	}

	applied, err := db.ApplySchema(ctx, scripts)
	if err != nil {
		closeWithLog(db, "database")
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("existing", exists).
		Int("scripts_applied", applied).
		Msg("Database ready")
	return db, nil
}

// Open opens an existing database file.
func Open(cfg *config.DatabaseConfig, mode Mode) (*DB, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	exists, err := fileExists(cfg.Path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, cfg.Path)
	}
	return open(cfg, mode)
}

// Destroy removes the database file and its write-ahead log. A missing file
// is not an error.
func Destroy(path string) error {
	if path == "" {
		return errors.New("database path is required")
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logging.Debug().Str("path", path).Msg("Database absent, nothing to destroy")
	case err != nil:
		return fmt.Errorf("failed to stat %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("refusing to destroy %s: is a directory", path)
	default:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		logging.Info().Str("path", path).Msg("Database destroyed")
	}

	if err := os.Remove(path + ".wal"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s.wal: %w", path, err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("database path %s is a directory", path)
	}
	return true, nil
}
