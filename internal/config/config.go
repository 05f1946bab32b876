// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package config loads Airlake configuration with Koanf v2.
//
// Sources are layered, later layers win:
//
//  1. Built-in defaults (defaultConfig)
//  2. A .env file in the working directory, exported into the process environment
//  3. An optional YAML file (--config flag, CONFIG_PATH, or the default search paths)
//  4. Environment variables listed in envMappings (DUCKDB_PATH, SOURCE_BASE_URL, ...)
//
// Each pipeline component receives only its own section; nothing in the
// pipeline reads configuration from globals.
package config

import "time"

// Config is the complete Airlake configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Source    SourceConfig    `koanf:"source"`
	Extract   ExtractConfig   `koanf:"extract"`
	Transform TransformConfig `koanf:"transform"`
	History   HistoryConfig   `koanf:"history"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig describes the DuckDB file and its schema.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"` // 0 lets DuckDB decide

	// AllowExisting makes Create idempotent on an existing file. When false,
	// Create refuses to touch a file that already exists.
	AllowExisting bool `koanf:"allow_existing"`

	// SchemaDir overrides the embedded schema scripts when set.
	SchemaDir string `koanf:"schema_dir"`

	RawSchema          string `koanf:"raw_schema" validate:"required,sqlident"`
	PresentationSchema string `koanf:"presentation_schema" validate:"required,sqlident"`
}

// SourceConfig selects and tunes the remote object store.
type SourceConfig struct {
	// Kind is "http" for the public archive bucket or "dir" for a local mirror.
	Kind    string        `koanf:"kind" validate:"oneof=http dir"`
	BaseURL string        `koanf:"base_url"`
	Root    string        `koanf:"root"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond paces outgoing requests; Burst allows short spikes.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=1"`
	UserAgent         string  `koanf:"user_agent"`

	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the breaker guarding the HTTP store.
type CircuitBreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" validate:"gte=1"`
	OpenTimeout         time.Duration `koanf:"open_timeout" validate:"gt=0"`
	HalfOpenRequests    uint32        `koanf:"half_open_requests" validate:"gte=1"`
}

// ExtractConfig drives the extractor.
type ExtractConfig struct {
	LocationsFile string `koanf:"locations_file"`
	Start         string `koanf:"start" validate:"omitempty,yearmonth"`
	End           string `koanf:"end" validate:"omitempty,yearmonth"`
	Workers       int    `koanf:"workers" validate:"min=1,max=64"`
	BatchSize     int    `koanf:"batch_size" validate:"min=1"`
	PathTemplate  string `koanf:"path_template" validate:"required"`
	FailOnErrors  bool   `koanf:"fail_on_errors"`

	Retry RetryConfig `koanf:"retry"`
}

// RetryConfig is the backoff schedule for transient fetch errors.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts" validate:"min=1,max=20"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `koanf:"max_interval" validate:"gte=0"`
	Multiplier      float64       `koanf:"multiplier" validate:"gte=1"`
}

// TransformConfig points at the presentation scripts.
type TransformConfig struct {
	// ScriptDir overrides the embedded transform scripts when set.
	ScriptDir string `koanf:"script_dir"`
}

// HistoryConfig controls extraction run history.
type HistoryConfig struct {
	// Path is the BadgerDB directory. Empty keeps history in memory only.
	Path   string `koanf:"path"`
	Retain int    `koanf:"retain" validate:"gte=0"` // 0 keeps every run
}

// ServerConfig configures the read-only query API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	MaxRows         int           `koanf:"max_rows" validate:"min=1"`

	// CacheTTL caches view results for this long; 0 disables the cache.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DefaultPathTemplate is the OpenAQ archive layout on the public S3 bucket.
const DefaultPathTemplate = "records/csv.gz/locationid={{.LocationID}}/year={{.Year}}/month={{.MonthPadded}}/location-{{.LocationID}}-{{.Year}}{{.MonthPadded}}.csv.gz"

// DefaultBaseURL is the public OpenAQ archive bucket.
const DefaultBaseURL = "https://openaq-data-archive.s3.amazonaws.com"
