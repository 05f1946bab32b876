// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"airlake.yaml",
	"airlake.yml",
	"config/airlake.yaml",
	"/etc/airlake/airlake.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is loaded into the environment before the env layer when present.
const DotEnvFile = ".env"

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:               "data/airlake.duckdb",
			MaxMemory:          "1GB",
			Threads:            0,
			AllowExisting:      false,
			RawSchema:          "raw",
			PresentationSchema: "presentation",
		},
		Source: SourceConfig{
			Kind:              "http",
			BaseURL:           DefaultBaseURL,
			Timeout:           60 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
			UserAgent:         "airlake/1.0",
			CircuitBreaker: CircuitBreakerConfig{
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
				HalfOpenRequests:    1,
			},
		},
		Extract: ExtractConfig{
			LocationsFile: "locations.yaml",
			Workers:       4,
			BatchSize:     5000,
			PathTemplate:  DefaultPathTemplate,
			Retry: RetryConfig{
				MaxAttempts:     4,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     10 * time.Second,
				Multiplier:      2,
			},
		},
		History: HistoryConfig{
			Path:   "data/history",
			Retain: 100,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8086,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:8501"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			MaxRows:         50000,
			CacheTTL:        30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in defaults without consulting any source.
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration from defaults, .env, an optional YAML file
// and the environment. An explicit path must exist; otherwise CONFIG_PATH and
// DefaultConfigPaths are searched and a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv exports variables from path. Variables already set in the
// environment keep their values. A missing file is ignored.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env strings for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored so the rest of the environment cannot leak
// into the configuration.
var envMappings = map[string]string{
	// Database
	"duckdb_path":                "database.path",
	"duckdb_max_memory":          "database.max_memory",
	"duckdb_threads":             "database.threads",
	"duckdb_allow_existing":      "database.allow_existing",
	"duckdb_schema_dir":          "database.schema_dir",
	"duckdb_raw_schema":          "database.raw_schema",
	"duckdb_presentation_schema": "database.presentation_schema",

	// Source
	"source_kind":                "source.kind",
	"source_base_url":            "source.base_url",
	"source_root":                "source.root",
	"source_timeout":             "source.timeout",
	"source_requests_per_second": "source.requests_per_second",
	"source_burst":               "source.burst",
	"source_user_agent":          "source.user_agent",
	"source_breaker_failures":    "source.circuit_breaker.consecutive_failures",
	"source_breaker_timeout":     "source.circuit_breaker.open_timeout",

	// Extract
	"locations_file":         "extract.locations_file",
	"extract_start":          "extract.start",
	"extract_end":            "extract.end",
	"extract_workers":        "extract.workers",
	"extract_batch_size":     "extract.batch_size",
	"extract_path_template":  "extract.path_template",
	"extract_fail_on_errors": "extract.fail_on_errors",
	"retry_max_attempts":     "extract.retry.max_attempts",
	"retry_initial_interval": "extract.retry.initial_interval",
	"retry_max_interval":     "extract.retry.max_interval",
	"retry_multiplier":       "extract.retry.multiplier",

	// Transform
	"transform_script_dir": "transform.script_dir",

	// History
	"history_path":   "history.path",
	"history_retain": "history.retain",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"api_max_rows":        "server.max_rows",
	"api_cache_ttl":       "server.cache_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its config path, or ""
// to skip it.
//
//	DUCKDB_PATH     -> database.path
//	SOURCE_BASE_URL -> source.base_url
//	LOG_LEVEL       -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
