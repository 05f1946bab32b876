// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Command airlake extracts monthly air quality archives into a local DuckDB
// file, builds the presentation views and serves them to the dashboard.
//
// # Commands
//
//	airlake create-db                  create the database file and raw schema
//	airlake extract --start 2024-01 --end 2024-03
//	airlake transform                  (re)build the presentation views
//	airlake serve                      read-only query API on /api/v1
//	airlake runs                       list recent extraction runs
//	airlake destroy-db                 remove the database file
//
// # Configuration
//
// Every command reads the same configuration (see internal/config): built-in
// defaults, then a .env file, then a YAML file (--config, CONFIG_PATH, or
// ./config.yaml), then environment variables such as DUCKDB_PATH and
// SOURCE_BASE_URL.
//
// # Exit Status
//
// 0 on success, 1 on a fatal error. Skipped and failed objects are listed
// in the extraction report and only fail the command with --fail-on-errors.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/airlake/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("airlake failed")
		os.Exit(1)
	}
}
