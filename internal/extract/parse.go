// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/airlake/internal/models"
)

// ParseError reports an object whose content could not be parsed. The
// whole object is rejected; parse errors are never retried.
type ParseError struct {
	Path string
	Line int // 0 when the error is not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Archive CSV columns. sensors_id is the archive spelling; sensor_id is
// accepted as well.
var (
	requiredColumns = []string{"location_id", "datetime", "parameter", "value"}
	sensorColumns   = []string{"sensors_id", "sensor_id"}
)

// columns maps header names to field positions; -1 means absent.
type columns struct {
	locationID, sensorID, location, datetime, lat, lon, parameter, units, value int
}

func newColumns(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		idx[strings.Trim(h, `"`)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return columns{}, fmt.Errorf("missing column %q", name)
		}
	}
	lookup := func(names ...string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}
	c := columns{
		locationID: idx["location_id"],
		sensorID:   lookup(sensorColumns...),
		location:   lookup("location"),
		datetime:   idx["datetime"],
		lat:        lookup("lat", "latitude"),
		lon:        lookup("lon", "longitude"),
		parameter:  idx["parameter"],
		units:      lookup("units", "unit"),
		value:      idx["value"],
	}
	if c.sensorID < 0 {
		return columns{}, fmt.Errorf("missing column %q", sensorColumns[0])
	}
	return c, nil
}

// decompress returns a reader over the plain CSV. gzip is detected from the
// magic bytes so both .csv.gz and .csv objects work.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid gzip stream: %w", err)
		}
		return zr, zr.Close, nil
	}
	return br, func() error { return nil }, nil
}

// Parse reads one archive object for task. Month, Year and IngestedAt are
// taken from the task and the ingestion time rather than the file.
func Parse(r io.Reader, task Task, ingestedAt time.Time) ([]models.RawReading, error) {
	plain, closeFn, err := decompress(r)
	if err != nil {
		return nil, &ParseError{Path: task.Path, Err: err}
	}
	defer func() { _ = closeFn() }()

	cr := csv.NewReader(plain)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &ParseError{Path: task.Path, Line: 1, Err: err}
	}
	cols, err := newColumns(header)
	if err != nil {
		return nil, &ParseError{Path: task.Path, Line: 1, Err: err}
	}

	month := task.Month.String()
	ingestedAt = ingestedAt.UTC()

	var out []models.RawReading
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Path: task.Path, Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, &ParseError{Path: task.Path, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		row, err := cols.reading(rec)
		if err != nil {
			return nil, &ParseError{Path: task.Path, Line: line, Err: err}
		}
		row.Month = month
		row.Year = task.Month.Year
		row.IngestedAt = ingestedAt
		out = append(out, row)
	}
	return out, nil
}

func (c columns) reading(rec []string) (models.RawReading, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var r models.RawReading
	var err error
	if r.LocationID, err = strconv.ParseInt(field(c.locationID), 10, 64); err != nil {
		return r, fmt.Errorf("location_id: %w", err)
	}
	if r.SensorID, err = strconv.ParseInt(field(c.sensorID), 10, 64); err != nil {
		return r, fmt.Errorf("sensors_id: %w", err)
	}
	if r.Datetime, err = parseTimestamp(field(c.datetime)); err != nil {
		return r, fmt.Errorf("datetime: %w", err)
	}
	if r.Value, err = strconv.ParseFloat(field(c.value), 64); err != nil {
		return r, fmt.Errorf("value: %w", err)
	}
	if r.Parameter = field(c.parameter); r.Parameter == "" {
		return r, errors.New("parameter is empty")
	}
	if r.Latitude, err = optionalFloat(field(c.lat)); err != nil {
		return r, fmt.Errorf("lat: %w", err)
	}
	if r.Longitude, err = optionalFloat(field(c.lon)); err != nil {
		return r, fmt.Errorf("lon: %w", err)
	}
	r.LocationName = field(c.location)
	r.Units = field(c.units)
	return r, nil
}

// timestampLayouts are tried in order; archive files use RFC 3339 with the
// local offset.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func optionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
