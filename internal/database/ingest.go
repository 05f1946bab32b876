// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/airlake/internal/models"
)

// ErrReadOnly is returned by write operations on a database opened ReadOnly.
var ErrReadOnly = errors.New("database is opened read-only")

// UpsertLocations records the configured locations in raw.locations so the
// presentation views can tell configured and unconfigured rows apart.
func (db *DB) UpsertLocations(ctx context.Context, locations []models.Location) error {
	if db.mode == ReadOnly {
		return ErrReadOnly
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin location upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (location_id, name, lat, lon, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (location_id) DO UPDATE SET
			name = excluded.name,
			lat = excluded.lat,
			lon = excluded.lon,
			updated_at = excluded.updated_at`, db.rawTable("locations")))
	if err != nil {
		return fmt.Errorf("failed to prepare location upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, l := range locations {
		if _, err := stmt.ExecContext(ctx, l.ID, l.Name, l.Latitude, l.Longitude, now); err != nil {
			return fmt.Errorf("failed to upsert location %d: %w", l.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit location upsert: %w", err)
	}
	return nil
}

// AppendReadings bulk-inserts rows into raw.air_quality through the DuckDB
// appender and returns the number of rows written. Callers serialize calls:
// the extractor funnels every batch through one writer goroutine.
func (db *DB) AppendReadings(ctx context.Context, rows []models.RawReading) (int, error) {
	if db.mode == ReadOnly {
		return 0, ErrReadOnly
	}
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer closeWithLog(conn, "appender connection")

	written := 0
	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		appender, err := duckdb.NewAppenderFromConn(dc, db.cfg.RawSchema, "air_quality")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}

		for i := range rows {
			r := &rows[i]
			if err := appender.AppendRow(
				r.LocationID,
				r.SensorID,
				r.LocationName,
				r.Datetime.UTC(),
				r.Latitude,
				r.Longitude,
				r.Parameter,
				r.Units,
				r.Value,
				r.Month,
				int32(r.Year), //nolint:gosec // calendar years fit in int32
				r.IngestedAt.UTC(),
			); err != nil {
				closeQuietly(appender)
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
			if i%1024 == 1023 && ctx.Err() != nil {
				closeQuietly(appender)
				return ctx.Err()
			}
		}

		// Close flushes the remaining buffered rows.
		if err := appender.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		written = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
