// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/airlake/internal/database/query"
	"github.com/tomtom215/airlake/internal/metrics"
	"github.com/tomtom215/airlake/internal/models"
)

// ViewFilter narrows a presentation query. Empty fields match everything.
// Start is inclusive and End exclusive.
type ViewFilter struct {
	LocationIDs []int64
	Parameters  []string
	Start       time.Time
	End         time.Time

	// Limit caps the number of rows; 0 means no cap.
	Limit int
}

// where renders the filter against the given time column.
func (f ViewFilter) where(timeColumn string) (string, []interface{}) {
	return query.NewWhereBuilder().
		AddInt64In("location_id", f.LocationIDs).
		AddStringIn("parameter", f.Parameters).
		AddTimeRange(timeColumn, f.Start, f.End).
		Build()
}

// selectFrom builds and runs a filtered query and hands each row to scan.
func (db *DB) selectFrom(ctx context.Context, viewName, columns, timeColumn, orderBy string, f ViewFilter, scan func(*sql.Rows) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := f.where(timeColumn)
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", columns, db.view(viewName), where, orderBy)
	return db.runSelect(ctx, viewName, q, args, f.Limit, scan)
}

// runSelect appends the row cap, runs q and records the query metric under
// viewName.
func (db *DB) runSelect(ctx context.Context, viewName, q string, args []interface{}, limit int, scan func(*sql.Rows) error) error {
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	start := time.Now()
	err := db.queryRows(ctx, q, args, scan)
	metrics.RecordDBQuery("select", viewName, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", viewName, err)
	}
	return nil
}

func (db *DB) queryRows(ctx context.Context, q string, args []interface{}, scan func(*sql.Rows) error) error {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Readings returns deduplicated readings ordered by timestamp.
func (db *DB) Readings(ctx context.Context, f ViewFilter) ([]models.Reading, error) {
	var out []models.Reading
	err := db.selectFrom(ctx, ViewReadings,
		"location_id, sensor_id, location, datetime, lat, lon, parameter, units, value, known_location",
		"datetime", "datetime, location_id, sensor_id, parameter", f,
		func(rows *sql.Rows) error {
			var r models.Reading
			var name, units sql.NullString
			var lat, lon sql.NullFloat64
			if err := rows.Scan(&r.LocationID, &r.SensorID, &name, &r.Datetime, &lat, &lon,
				&r.Parameter, &units, &r.Value, &r.KnownLocation); err != nil {
				return err
			}
			r.LocationName, r.Units = name.String, units.String
			r.Latitude, r.Longitude = lat.Float64, lon.Float64
			out = append(out, r)
			return nil
		})
	return out, err
}

const latestColumns = "location_id, location, parameter, units, value, datetime"

// LatestValues returns the latest value per location and parameter, ordered
// by timestamp. With a date range the latest row is picked among the readings
// inside the range, so newer data outside it does not hide them.
func (db *DB) LatestValues(ctx context.Context, f ViewFilter) ([]models.LatestValue, error) {
	var out []models.LatestValue
	scan := func(rows *sql.Rows) error {
		var v models.LatestValue
		var name, units sql.NullString
		if err := rows.Scan(&v.LocationID, &name, &v.Parameter, &units, &v.Value, &v.Datetime); err != nil {
			return err
		}
		v.LocationName, v.Units = name.String, units.String
		out = append(out, v)
		return nil
	}

	const orderBy = "datetime, location_id, parameter"
	if f.Start.IsZero() && f.End.IsZero() {
		err := db.selectFrom(ctx, ViewLatest, latestColumns, "datetime", orderBy, f, scan)
		return out, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := f.where("datetime")
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s
QUALIFY ROW_NUMBER() OVER (
    PARTITION BY location_id, parameter
    ORDER BY datetime DESC, sensor_id, value DESC
) = 1
ORDER BY %s`, latestColumns, db.view(ViewReadings), where, orderBy)
	err := db.runSelect(ctx, ViewLatest, q, args, f.Limit, scan)
	return out, err
}

// DailyAggregates returns daily mean, min, max and count per location and
// parameter, ordered by day.
func (db *DB) DailyAggregates(ctx context.Context, f ViewFilter) ([]models.DailyAggregate, error) {
	var out []models.DailyAggregate
	err := db.selectFrom(ctx, ViewDaily,
		"location_id, location, parameter, units, reading_date, avg_value, min_value, max_value, reading_count",
		"reading_date", "reading_date, location_id, parameter", f,
		func(rows *sql.Rows) error {
			var a models.DailyAggregate
			var name, units sql.NullString
			if err := rows.Scan(&a.LocationID, &name, &a.Parameter, &units, &a.Day,
				&a.Mean, &a.Min, &a.Max, &a.Count); err != nil {
				return err
			}
			a.LocationName, a.Units = name.String, units.String
			out = append(out, a)
			return nil
		})
	return out, err
}

// LocationAnomalies lists unconfigured (location, sensor) pairs found in the
// raw data, ordered by first appearance.
func (db *DB) LocationAnomalies(ctx context.Context) ([]models.LocationAnomaly, error) {
	var out []models.LocationAnomaly
	err := db.selectFrom(ctx, ViewAnomalies,
		"location_id, sensor_id, row_count, first_seen, last_seen",
		"first_seen", "first_seen, location_id, sensor_id", ViewFilter{},
		func(rows *sql.Rows) error {
			var a models.LocationAnomaly
			if err := rows.Scan(&a.LocationID, &a.SensorID, &a.Rows, &a.FirstSeen, &a.LastSeen); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	return out, err
}

// Locations returns the configured locations recorded in raw.locations.
func (db *DB) Locations(ctx context.Context) ([]models.Location, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var out []models.Location
	err := db.queryRows(ctx,
		"SELECT location_id, name, lat, lon FROM "+db.rawTable("locations")+" ORDER BY location_id", nil,
		func(rows *sql.Rows) error {
			var l models.Location
			if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude); err != nil {
				return err
			}
			out = append(out, l)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	return out, nil
}
