// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Database.AllowExisting {
		t.Error("AllowExisting should default to false")
	}
	if cfg.Extract.PathTemplate != DefaultPathTemplate {
		t.Errorf("unexpected default path template %q", cfg.Extract.PathTemplate)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "airlake.yaml", `
database:
  path: /tmp/from-file.duckdb
  allow_existing: true
extract:
  workers: 8
  start: "2024-01"
  end: "2024-03"
  retry:
    max_attempts: 2
server:
  port: 9000
`)

	t.Setenv("DUCKDB_PATH", "/tmp/from-env.duckdb")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("RETRY_INITIAL_INTERVAL", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/from-env.duckdb" {
		t.Errorf("env should override file, got %q", cfg.Database.Path)
	}
	if !cfg.Database.AllowExisting {
		t.Error("allow_existing from file was not applied")
	}
	if cfg.Extract.Workers != 8 || cfg.Server.Port != 9000 {
		t.Errorf("file values not applied: workers=%d port=%d", cfg.Extract.Workers, cfg.Server.Port)
	}
	if cfg.Extract.Retry.MaxAttempts != 2 || cfg.Extract.Retry.InitialInterval != 250*time.Millisecond {
		t.Errorf("retry not layered: %+v", cfg.Extract.Retry)
	}
	if cfg.Extract.Retry.Multiplier != 2 {
		t.Errorf("default multiplier lost, got %v", cfg.Extract.Retry.Multiplier)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("CORS origins not split: %v", cfg.Server.CORSOrigins)
	}

	r, err := cfg.Extract.DateRange()
	if err != nil || r.Len() != 3 {
		t.Errorf("DateRange = %v (%v), want 3 months", r, err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "AIRLAKE_TEST_DOTENV=from-file\n")

	if err := loadDotEnv(envPath); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("AIRLAKE_TEST_DOTENV") })
	if got := os.Getenv("AIRLAKE_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected variable from .env, got %q", got)
	}
	if err := loadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad source kind", func(c *Config) { c.Source.Kind = "ftp" }, "config"},
		{"dir without root", func(c *Config) { c.Source.Kind = "dir" }, "source.root"},
		{"bad base url", func(c *Config) { c.Source.BaseURL = "s3://bucket" }, "source.base_url"},
		{"start without end", func(c *Config) { c.Extract.Start = "2024-01" }, "extract.start"},
		{"reversed range", func(c *Config) { c.Extract.Start, c.Extract.End = "2024-05", "2024-01" }, "extract.start"},
		{"bad month", func(c *Config) { c.Extract.Start, c.Extract.End = "2024-13", "2024-14" }, "config"},
		{"template without location", func(c *Config) { c.Extract.PathTemplate = "{{.Year}}.csv.gz" }, "extract.path_template"},
		{"broken template", func(c *Config) { c.Extract.PathTemplate = "{{.LocationID" }, "extract.path_template"},
		{"short max interval", func(c *Config) { c.Extract.Retry.MaxInterval = time.Millisecond }, "extract.retry.max_interval"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unsafe schema name", func(c *Config) { c.Database.RawSchema = "raw;drop" }, "config"},
		{"zero workers", func(c *Config) { c.Extract.Workers = 0 }, "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q (%v)", verr.Field, tt.field, err)
			}
		})
	}
}

func TestLoadLocations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "locations.yaml", `
locations:
  - id: 2178
    name: Del Norte
    latitude: 35.1353
    longitude: -106.5847
  - id: 8118
    name: New Delhi
    latitude: 28.6317
    longitude: 77.2167
`)

	locs, err := LoadLocations(path)
	if err != nil {
		t.Fatalf("LoadLocations: %v", err)
	}
	if len(locs) != 2 || locs[0].ID != 2178 || locs[1].Name != "New Delhi" {
		t.Errorf("unexpected locations: %+v", locs)
	}
}

func TestLoadLocationsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "locations: []\n", "at least one location"},
		{"duplicate", "locations:\n  - {id: 1, name: a}\n  - {id: 1, name: b}\n", "duplicate location id 1"},
		{"missing name", "locations:\n  - {id: 3}\n", "name is required"},
		{"bad latitude", "locations:\n  - {id: 4, name: x, latitude: 91}\n", "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, t.TempDir(), "locations.yaml", tt.content)
			_, err := LoadLocations(path)
			if err == nil {
				t.Fatal("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}
