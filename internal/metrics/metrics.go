// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

// Package metrics declares the Prometheus instruments for the pipeline.
// The serve command exposes them on /metrics; batch commands update them so
// a pushgateway or textfile collector can pick them up if an operator wires one.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/airlake/internal/models"
)

// Task outcomes.
const (
	OutcomeLoaded  = "loaded"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	// Extraction
	ExtractTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_extract_tasks_total",
			Help: "Extraction tasks by outcome (loaded, skipped, failed)",
		},
		[]string{"outcome"},
	)

	ExtractRowsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airlake_extract_rows_inserted_total",
			Help: "Raw readings appended to the raw table",
		},
	)

	ExtractAnomalousRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airlake_extract_anomalous_rows_total",
			Help: "Raw readings whose location_id is not configured",
		},
	)

	ExtractRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airlake_extract_run_duration_seconds",
			Help:    "Wall time of complete extraction runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Object store
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airlake_fetch_duration_seconds",
			Help:    "Duration of object fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "result"},
	)

	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "airlake_fetch_retries_total",
			Help: "Fetch attempts retried after a transient error",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airlake_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Transformation
	TransformStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airlake_transform_step_duration_seconds",
			Help:    "Duration of each transform script",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	TransformFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_transform_failures_total",
			Help: "Transform scripts that failed",
		},
		[]string{"step"},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airlake_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "view"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_duckdb_query_errors_total",
			Help: "DuckDB query errors",
		},
		[]string{"operation", "view"},
	)

	// Served database
	DatabaseRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airlake_database_rows",
			Help: "Row counts of the served database by table",
		},
		[]string{"table"},
	)

	DatabaseViewsReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "airlake_database_views_ready",
			Help: "1 when the presentation views exist",
		},
	)

	// Query API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_api_requests_total",
			Help: "Query API requests",
		},
		[]string{"method", "route", "status"},
	)

	APICacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airlake_api_cache_lookups_total",
			Help: "Query API result cache lookups",
		},
		[]string{"view", "result"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airlake_api_request_duration_seconds",
			Help:    "Query API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordTask counts one finished extraction task.
func RecordTask(outcome string) {
	ExtractTasks.WithLabelValues(outcome).Inc()
}

// RecordFetch observes one fetch attempt.
func RecordFetch(store, result string, d time.Duration) {
	FetchDuration.WithLabelValues(store, result).Observe(d.Seconds())
}

// RecordDBQuery observes a query against a presentation view.
func RecordDBQuery(operation, view string, d time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, view).Observe(d.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, view).Inc()
	}
}

// RecordTransformStep observes one transform script.
func RecordTransformStep(step string, d time.Duration, err error) {
	TransformStepDuration.WithLabelValues(step).Observe(d.Seconds())
	if err != nil {
		TransformFailures.WithLabelValues(step).Inc()
	}
}

// RecordAPIRequest observes one API request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordCacheLookup counts one API result cache lookup.
func RecordCacheLookup(view string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	APICacheLookups.WithLabelValues(view, result).Inc()
}

// SetDatabaseStats publishes the row counts and view readiness of the
// served database.
func SetDatabaseStats(counts models.RecordCounts, viewsReady bool) {
	DatabaseRows.WithLabelValues("raw_readings").Set(float64(counts.RawReadings))
	DatabaseRows.WithLabelValues("locations").Set(float64(counts.Locations))
	DatabaseRows.WithLabelValues("deduplicated_readings").Set(float64(counts.DeduplicatedReadings))
	if viewsReady {
		DatabaseViewsReady.Set(1)
	} else {
		DatabaseViewsReady.Set(0)
	}
}
