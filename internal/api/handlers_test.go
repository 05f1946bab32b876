// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/models"
)

var ts0 = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// fakeStore records the last filter and returns canned rows.
type fakeStore struct {
	lastFilter database.ViewFilter
	err        error
	pingErr    error
	viewsReady bool
	calls      int
}

func (s *fakeStore) Readings(_ context.Context, f database.ViewFilter) ([]models.Reading, error) {
	s.lastFilter = f
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.Reading{
		{LocationID: 2178, SensorID: 1, Datetime: ts0, Parameter: "pm25", Value: 12.5, KnownLocation: true},
		{LocationID: 2178, SensorID: 1, Datetime: ts0.Add(time.Hour), Parameter: "pm25", Value: 13, KnownLocation: true},
	}, nil
}

func (s *fakeStore) LatestValues(_ context.Context, f database.ViewFilter) ([]models.LatestValue, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	return []models.LatestValue{{LocationID: 2178, Parameter: "pm10", Value: 20, Datetime: ts0}}, nil
}

func (s *fakeStore) DailyAggregates(_ context.Context, f database.ViewFilter) ([]models.DailyAggregate, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, s.err
	}
	return []models.DailyAggregate{{LocationID: 2178, Parameter: "pm10", Day: ts0, Mean: 15, Min: 10, Max: 20, Count: 2}}, nil
}

func (s *fakeStore) LocationAnomalies(context.Context) ([]models.LocationAnomaly, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.LocationAnomaly{{LocationID: 9999, SensorID: 7, Rows: 3, FirstSeen: ts0, LastSeen: ts0}}, nil
}

func (s *fakeStore) Locations(context.Context) ([]models.Location, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Location{{ID: 2178, Name: "Del Norte", Latitude: 35.1, Longitude: -106.5}}, nil
}

func (s *fakeStore) RecordCounts(context.Context) (models.RecordCounts, error) {
	return models.RecordCounts{RawReadings: 42}, nil
}

func (s *fakeStore) ViewsReady(context.Context) (bool, error) { return s.viewsReady, nil }
func (s *fakeStore) Ping(context.Context) error               { return s.pingErr }
func (s *fakeStore) Path() string                             { return "/data/airlake.duckdb" }

// envelope is the decoded response shape used by assertions.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func newTestServer(store QueryStore, maxRows int) http.Handler {
	return NewRouter(NewHandler(store, maxRows, time.Second), nil).SetupChi()
}

func doGet(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v (body %q)", target, err, rec.Body.String())
	}
	return rec, env
}

func TestReadingsEndpoint(t *testing.T) {
	store := &fakeStore{}
	h := newTestServer(store, 1000)

	rec, env := doGet(t, h, "/api/v1/readings?location_id=2178,8118&parameter=pm25&parameter=o3&start=2024-01-01&end=2024-02&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Status != "success" || env.Metadata.Count != 2 {
		t.Errorf("envelope = %+v", env)
	}
	if rec.Header().Get("ETag") == "" || rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing ETag or X-Request-ID header")
	}

	want := database.ViewFilter{
		LocationIDs: []int64{2178, 8118},
		Parameters:  []string{"pm25", "o3"},
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Limit:       10,
	}
	if !reflect.DeepEqual(store.lastFilter, want) {
		t.Errorf("filter = %+v\nwant %+v", store.lastFilter, want)
	}

	var rows []models.Reading
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || !rows[0].Datetime.Before(rows[1].Datetime) {
		t.Errorf("rows = %+v", rows)
	}
}

func TestViewEndpoints_LimitCappedAtMaxRows(t *testing.T) {
	store := &fakeStore{}
	h := newTestServer(store, 100)

	for _, target := range []string{"/api/v1/latest", "/api/v1/daily?limit=5000"} {
		rec, _ := doGet(t, h, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
		if store.lastFilter.Limit != 100 {
			t.Errorf("%s: limit = %d, want 100", target, store.lastFilter.Limit)
		}
	}
}

func TestViewEndpoints_ValidationErrors(t *testing.T) {
	h := newTestServer(&fakeStore{}, 100)

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric location", "/api/v1/readings?location_id=abc"},
		{"zero location", "/api/v1/readings?location_id=0"},
		{"bad parameter", "/api/v1/latest?parameter=PM2.5!"},
		{"bad start", "/api/v1/daily?start=yesterday"},
		{"end before start", "/api/v1/readings?start=2024-02-01&end=2024-01-01"},
		{"negative limit", "/api/v1/readings?limit=-1"},
		{"non-numeric limit", "/api/v1/readings?limit=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doGet(t, h, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v", env.Error)
			}
		})
	}
}

func TestEndpoints_DatabaseError(t *testing.T) {
	h := newTestServer(&fakeStore{err: errors.New("catalog error")}, 100)

	for _, target := range []string{"/api/v1/readings", "/api/v1/latest", "/api/v1/daily", "/api/v1/anomalies", "/api/v1/locations"} {
		rec, env := doGet(t, h, target)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", target, rec.Code)
		}
		if env.Error == nil || env.Error.Code != "DATABASE_ERROR" {
			t.Errorf("%s: error = %+v", target, env.Error)
		}
	}
}

func TestAnomaliesAndLocations(t *testing.T) {
	h := newTestServer(&fakeStore{}, 100)

	_, env := doGet(t, h, "/api/v1/anomalies")
	var anomalies []models.LocationAnomaly
	if err := json.Unmarshal(env.Data, &anomalies); err != nil {
		t.Fatal(err)
	}
	if len(anomalies) != 1 || anomalies[0].LocationID != 9999 {
		t.Errorf("anomalies = %+v", anomalies)
	}

	_, env = doGet(t, h, "/api/v1/locations")
	var locations []models.Location
	if err := json.Unmarshal(env.Data, &locations); err != nil {
		t.Fatal(err)
	}
	if len(locations) != 1 || locations[0].Name != "Del Norte" {
		t.Errorf("locations = %+v", locations)
	}
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		store      *fakeStore
		target     string
		wantStatus int
		wantState  string
	}{
		{"live", &fakeStore{pingErr: errors.New("down")}, "/api/v1/health/live", http.StatusOK, "alive"},
		{"ready", &fakeStore{viewsReady: true}, "/api/v1/health/ready", http.StatusOK, "ready"},
		{"views missing", &fakeStore{}, "/api/v1/health/ready", http.StatusServiceUnavailable, "not_ready"},
		{"database down", &fakeStore{pingErr: errors.New("down"), viewsReady: true}, "/api/v1/health/ready", http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doGet(t, newTestServer(tt.store, 100), tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var health models.HealthStatus
			if err := json.Unmarshal(env.Data, &health); err != nil {
				t.Fatal(err)
			}
			if health.Status != tt.wantState {
				t.Errorf("health status = %q, want %q", health.Status, tt.wantState)
			}
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(&fakeStore{}, 100)

	rec, env := doGet(t, h, "/api/v1/nope")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown route: %d %+v", rec.Code, env.Error)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/readings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&fakeStore{}, 100)
	doGet(t, h, "/api/v1/readings")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "airlake_api_requests_total") {
		t.Error("metrics output missing airlake_api_requests_total")
	}
}

func TestViewCache(t *testing.T) {
	store := &fakeStore{}
	handler := NewHandler(store, 100, time.Second)
	handler.EnableCache(time.Minute)
	defer handler.Close()
	h := NewRouter(handler, nil).SetupChi()

	doGet(t, h, "/api/v1/readings?location_id=2178")
	doGet(t, h, "/api/v1/readings?location_id=2178")
	if store.calls != 1 {
		t.Errorf("identical requests hit the database %d times, want 1", store.calls)
	}

	doGet(t, h, "/api/v1/readings?location_id=8118")
	if store.calls != 2 {
		t.Errorf("a different filter should miss the cache; calls = %d", store.calls)
	}
}

func TestViewCache_ErrorsNotCached(t *testing.T) {
	store := &fakeStore{err: errors.New("catalog error")}
	handler := NewHandler(store, 100, time.Second)
	handler.EnableCache(time.Minute)
	defer handler.Close()
	h := NewRouter(handler, nil).SetupChi()

	doGet(t, h, "/api/v1/readings")
	store.err = nil
	rec, _ := doGet(t, h, "/api/v1/readings")
	if rec.Code != http.StatusOK || store.calls != 2 {
		t.Errorf("status %d after recovery, calls %d; want 200 and 2", rec.Code, store.calls)
	}
}

func TestCompressedResponse(t *testing.T) {
	h := newTestServer(&fakeStore{}, 100)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}
}
