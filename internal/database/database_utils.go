// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/airlake/internal/models"
)

// Presentation view names.
const (
	ViewReadings  = "readings_deduplicated"
	ViewLatest    = "latest_param_values"
	ViewDaily     = "daily_air_quality_stats"
	ViewAnomalies = "location_anomalies"
)

// PresentationViews lists the views the query contract depends on.
var PresentationViews = []string{ViewReadings, ViewLatest, ViewDaily, ViewAnomalies}

// ensureContext adds a 30-second timeout when ctx has no deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// rawTable qualifies a table in the raw schema.
func (db *DB) rawTable(name string) string {
	return db.cfg.RawSchema + "." + name
}

// view qualifies a view in the presentation schema.
func (db *DB) view(name string) string {
	return db.cfg.PresentationSchema + "." + name
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// ViewsReady reports whether every presentation view exists.
func (db *DB) ViewsReady(ctx context.Context) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM duckdb_views() WHERE schema_name = ? AND view_name IN (?, ?, ?, ?)`,
		db.cfg.PresentationSchema, ViewReadings, ViewLatest, ViewDaily, ViewAnomalies,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to list views: %w", err)
	}
	return n == len(PresentationViews), nil
}

// RecordCounts returns raw and presentation sizes. The deduplicated count
// is left at zero until the views exist.
func (db *DB) RecordCounts(ctx context.Context) (models.RecordCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c models.RecordCounts
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.rawTable("air_quality")).Scan(&c.RawReadings); err != nil {
		return c, fmt.Errorf("failed to count raw readings: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.rawTable("locations")).Scan(&c.Locations); err != nil {
		return c, fmt.Errorf("failed to count locations: %w", err)
	}

	ready, err := db.ViewsReady(ctx)
	if err != nil || !ready {
		return c, err
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.view(ViewReadings)).Scan(&c.DeduplicatedReadings); err != nil {
		return c, fmt.Errorf("failed to count deduplicated readings: %w", err)
	}
	return c, nil
}
