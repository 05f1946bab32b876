// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package transform

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/scripts"
)

// recordingRunner records executed scripts and fails on a chosen one.
type recordingRunner struct {
	ran    []string
	failOn string
	err    error
}

func (r *recordingRunner) ExecScript(_ context.Context, phase string, s database.Script) error {
	if s.Name == r.failOn {
		return r.err
	}
	r.ran = append(r.ran, s.Name)
	return nil
}

func TestTransform_RunsInOrder(t *testing.T) {
	runner := &recordingRunner{}
	fsys := mapFS(map[string]string{
		"001_summary.sql": "-- depends: base\nSELECT 1;",
		"002_base.sql":    "SELECT 2;",
	})

	result, err := New(runner).Transform(context.Background(), fsys)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := []string{"002_base.sql", "001_summary.sql"}
	if !reflect.DeepEqual(runner.ran, want) {
		t.Errorf("ran = %v, want %v", runner.ran, want)
	}
	if len(result.Executed) != 2 || result.Executed[0].Name != "base" {
		t.Errorf("result = %+v", result.Executed)
	}
}

func TestTransform_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	runner := &recordingRunner{failOn: "002_b.sql", err: boom}
	fsys := mapFS(map[string]string{
		"001_a.sql": "SELECT 1;",
		"002_b.sql": "SELECT 2;",
		"003_c.sql": "SELECT 3;",
	})

	result, err := New(runner).Transform(context.Background(), fsys)
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected *ScriptError, got %v", err)
	}
	if scriptErr.Script != "002_b.sql" || scriptErr.Phase != "transform" {
		t.Errorf("script error = %+v", scriptErr)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause not preserved: %v", err)
	}
	if !reflect.DeepEqual(runner.ran, []string{"001_a.sql"}) {
		t.Errorf("ran = %v, want only 001_a.sql", runner.ran)
	}
	if len(result.Executed) != 1 {
		t.Errorf("executed = %d, want 1", len(result.Executed))
	}
}

func TestTransform_OrderErrorsBeforeExecution(t *testing.T) {
	runner := &recordingRunner{}
	fsys := mapFS(map[string]string{
		"001_a.sql": "SELECT 1;",
		"002_b.sql": "-- depends: nope\nSELECT 2;",
	})
	if _, err := New(runner).Transform(context.Background(), fsys); !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("err = %v, want ErrUnknownDependency", err)
	}
	if len(runner.ran) != 0 {
		t.Errorf("scripts ran before validation: %v", runner.ran)
	}
}

// newTestDatabase creates a DuckDB file with the built-in schema.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Path:               filepath.Join(t.TempDir(), "airlake.duckdb"),
		MaxMemory:          "512MB",
		Threads:            1,
		RawSchema:          "raw",
		PresentationSchema: "presentation",
	}
	db, err := database.Create(context.Background(), cfg, scripts.Schema())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTransform_Idempotent(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	loc := models.Location{ID: 1, Name: "A", Latitude: 1, Longitude: 2}
	if err := db.UpsertLocations(ctx, []models.Location{loc}); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []models.RawReading
	for i, v := range []float64{10, 20, 20} {
		rows = append(rows, models.RawReading{
			LocationID: 1, SensorID: 1, Parameter: "pm10", Units: "µg/m³",
			Datetime: base.Add(time.Duration(i) * time.Hour), Value: v,
			Month: "2024-01", Year: 2024, IngestedAt: base,
		})
	}
	if _, err := db.AppendReadings(ctx, rows); err != nil {
		t.Fatal(err)
	}

	tr := New(db)
	first, err := tr.Transform(ctx, scripts.Transform())
	if err != nil {
		t.Fatalf("first Transform: %v", err)
	}
	if len(first.Executed) != 4 {
		t.Errorf("executed = %d, want 4", len(first.Executed))
	}
	before, err := db.Readings(ctx, database.ViewFilter{})
	if err != nil {
		t.Fatal(err)
	}
	latestBefore, err := db.LatestValues(ctx, database.ViewFilter{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Transform(ctx, scripts.Transform()); err != nil {
		t.Fatalf("second Transform: %v", err)
	}
	after, err := db.Readings(ctx, database.ViewFilter{})
	if err != nil {
		t.Fatal(err)
	}
	latestAfter, err := db.LatestValues(ctx, database.ViewFilter{})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(before, after) {
		t.Errorf("readings changed between runs:\n%v\n%v", before, after)
	}
	if !reflect.DeepEqual(latestBefore, latestAfter) {
		t.Errorf("latest values changed between runs")
	}
	if len(latestAfter) != 1 || latestAfter[0].Value != 20 {
		t.Errorf("latest = %+v, want one row with value 20", latestAfter)
	}
}

func TestTransform_SQLFailureIsScriptError(t *testing.T) {
	db := newTestDatabase(t)
	fsys := mapFS(map[string]string{
		"001_ok.sql":  "CREATE OR REPLACE VIEW {{.PresentationSchema}}.ok AS SELECT 1 AS x;",
		"002_bad.sql": "CREATE OR REPLACE VIEW {{.PresentationSchema}}.bad AS SELECT * FROM {{.RawSchema}}.missing_table;",
	})

	_, err := New(db).Transform(context.Background(), fsys)
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) || scriptErr.Script != "002_bad.sql" {
		t.Fatalf("expected ScriptError for 002_bad.sql, got %v", err)
	}
}
