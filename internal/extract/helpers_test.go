// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/objectstore"
)

const csvHeader = "location_id,sensors_id,location,datetime,lat,lon,parameter,units,value\n"

// csvLine formats one archive row.
func csvLine(locationID int64, ts string, parameter string, value float64) string {
	return fmt.Sprintf("%d,%d,\"Site %d\",%s,35.1,-106.5,%s,µg/m³,%g\n",
		locationID, locationID*10, locationID, ts, parameter, value)
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := io.WriteString(zw, s); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeStore serves bodies by path. Errors queued for a path are returned
// first, one per call; a path with no body and no queued error is missing.
type fakeStore struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string][]error
	calls  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bodies: make(map[string][]byte),
		errs:   make(map[string][]error),
		calls:  make(map[string]int),
	}
}

func (s *fakeStore) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[path]++
	if q := s.errs[path]; len(q) > 0 {
		s.errs[path] = q[1:]
		return nil, q[0]
	}
	body, ok := s.bodies[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (s *fakeStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *fakeStore) callsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// fakeSink records everything written to it.
type fakeSink struct {
	mu        sync.Mutex
	locations []models.Location
	rows      []models.RawReading
	appendErr error
}

func (s *fakeSink) UpsertLocations(_ context.Context, locations []models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, locations...)
	return nil
}

func (s *fakeSink) AppendReadings(_ context.Context, rows []models.RawReading) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

func (s *fakeSink) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

var (
	locA = models.Location{ID: 2178, Name: "Del Norte", Latitude: 35.1353, Longitude: -106.5847}
	locB = models.Location{ID: 8118, Name: "New Delhi", Latitude: 28.6353, Longitude: 77.2249}

	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func mustRange(t *testing.T, start, end string) models.DateRange {
	t.Helper()
	dr, err := models.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("ParseDateRange(%s, %s): %v", start, end, err)
	}
	return dr
}

func newTestExtractor(t *testing.T, store objectstore.Store, sink ReadingSink, retry RetryPolicy) *Extractor {
	t.Helper()
	e, err := New(store, sink, Options{
		Retry:     retry,
		Workers:   4,
		BatchSize: 2,
		Clock:     func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// seedObject stores a gzip object with n hourly rows for loc in month.
func seedObject(t *testing.T, e *Extractor, store *fakeStore, loc models.Location, month string, n int) string {
	t.Helper()
	m, err := models.ParseMonth(month)
	if err != nil {
		t.Fatal(err)
	}
	path, err := e.paths.Render(loc, m)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	sb.WriteString(csvHeader)
	for i := 0; i < n; i++ {
		ts := m.Start().Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		sb.WriteString(csvLine(loc.ID, ts, "pm25", float64(i)))
	}
	store.bodies[path] = gzipBytes(t, sb.String())
	return path
}

var errBoom = errors.New("boom")
