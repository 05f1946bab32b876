// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package history keeps extraction reports in BadgerDB so operators can
// review past runs with "airlake runs".
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/extract"
	"github.com/tomtom215/airlake/internal/logging"
)

// runPrefix namespaces report keys. Keys sort by start time, so the newest
// run is last.
const runPrefix = "run:"

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store persists extraction reports.
type Store struct {
	db     *badger.DB
	retain int
}

// Open opens the store at cfg.Path, or an in-memory store when the path is
// empty.
func Open(cfg config.HistoryConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // badger is chatty at info level

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return &Store{db: db, retain: cfg.Retain}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(r *extract.Report) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runPrefix, r.StartedAt.UnixNano(), r.RunID))
}

// Save stores a report and prunes runs beyond the retention limit.
func (s *Store) Save(ctx context.Context, r *extract.Report) error {
	if r == nil || r.RunID == "" {
		return errors.New("report has no run ID")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(r), data)
	}); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if s.retain > 0 {
		removed, err := s.Prune(ctx, s.retain)
		if err != nil {
			return err
		}
		if removed > 0 {
			logging.Debug().Int("removed", removed).Msg("Pruned run history")
		}
	}
	return nil
}

// List returns up to limit reports, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*extract.Report, error) {
	var reports []*extract.Report
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last key with the prefix.
		for it.Seek([]byte(runPrefix + "\xff")); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r extract.Report
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			reports = append(reports, &r)
			if limit > 0 && len(reports) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return reports, nil
}

// Get returns the report for runID.
func (s *Store) Get(ctx context.Context, runID string) (*extract.Report, error) {
	reports, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// Prune keeps the newest keep runs and deletes the rest. It returns the
// number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		for it.Seek([]byte(runPrefix + "\xff")); it.ValidForPrefix(opts.Prefix); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("scan runs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range stale {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete run: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return len(stale), nil
}

// Since returns reports that started at or after t, newest first.
func (s *Store) Since(ctx context.Context, t time.Time) ([]*extract.Report, error) {
	all, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []*extract.Report
	for _, r := range all {
		if !r.StartedAt.Before(t) {
			out = append(out, r)
		}
	}
	return out, nil
}
