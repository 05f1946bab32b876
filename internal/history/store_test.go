// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/extract"
	"github.com/tomtom215/airlake/internal/models"
)

var base = time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)

func newReport(i int) *extract.Report {
	return &extract.Report{
		RunID:        fmt.Sprintf("run-%02d", i),
		StartedAt:    base.Add(time.Duration(i) * time.Hour),
		FinishedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
		Attempted:    4,
		Loaded:       3,
		RowsInserted: int64(100 * i),
		Skipped: []extract.TaskProblem{{
			LocationID: 2178,
			Month:      models.Month{Year: 2024, Month: time.February},
			Path:       "records/x.csv.gz",
			Reason:     "not found",
			Attempts:   1,
		}},
	}
}

func openMemory(t *testing.T, retain int) *Store {
	t.Helper()
	s, err := Open(config.HistoryConfig{Retain: retain})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndList(t *testing.T) {
	s := openMemory(t, 0)
	ctx := context.Background()

	for _, i := range []int{2, 0, 1} {
		if err := s.Save(ctx, newReport(i)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"run-02", "run-01", "run-00"} {
		if all[i].RunID != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].RunID, want)
		}
	}

	got := all[0]
	if got.RowsInserted != 200 || got.SkippedCount() != 1 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Skipped[0].Month.String() != "2024-02" {
		t.Errorf("month = %s", got.Skipped[0].Month)
	}
	if !got.StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("started = %v", got.StartedAt)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[1].RunID != "run-01" {
		t.Errorf("limited = %d runs", len(limited))
	}
}

func TestStore_Retain(t *testing.T) {
	s := openMemory(t, 3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Save(ctx, newReport(i)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[2].RunID != "run-02" {
		t.Errorf("oldest kept = %s, want run-02", all[2].RunID)
	}
}

func TestStore_GetAndSince(t *testing.T) {
	s := openMemory(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, newReport(i)); err != nil {
			t.Fatal(err)
		}
	}

	r, err := s.Get(ctx, "run-01")
	if err != nil || r.RunID != "run-01" {
		t.Fatalf("Get = %v, %v", r, err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	recent, err := s.Since(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Errorf("since = %d runs, want 2", len(recent))
	}
}

func TestStore_SaveRejectsEmptyRunID(t *testing.T) {
	s := openMemory(t, 0)
	if err := s.Save(context.Background(), &extract.Report{}); err == nil {
		t.Error("expected error for report without run ID")
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	cfg := config.HistoryConfig{Path: filepath.Join(t.TempDir(), "history")}
	ctx := context.Background()

	s, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, newReport(7)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].RunID != "run-07" {
		t.Errorf("after reopen = %+v", all)
	}
}
