// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/airlake/internal/models"
)

func TestRecordTask(t *testing.T) {
	before := testutil.ToFloat64(ExtractTasks.WithLabelValues(OutcomeSkipped))
	RecordTask(OutcomeSkipped)
	RecordTask(OutcomeSkipped)
	after := testutil.ToFloat64(ExtractTasks.WithLabelValues(OutcomeSkipped))
	if after-before != 2 {
		t.Errorf("expected skipped counter to grow by 2, grew by %v", after-before)
	}
}

func TestRecordTransformStep(t *testing.T) {
	before := testutil.ToFloat64(TransformFailures.WithLabelValues("metrics_test_step"))
	RecordTransformStep("metrics_test_step", 5*time.Millisecond, nil)
	RecordTransformStep("metrics_test_step", 5*time.Millisecond, errors.New("boom"))
	after := testutil.ToFloat64(TransformFailures.WithLabelValues("metrics_test_step"))
	if after-before != 1 {
		t.Errorf("expected one failure recorded, got %v", after-before)
	}
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "metrics_test_view"))
	RecordDBQuery("select", "metrics_test_view", time.Millisecond, errors.New("catalog error"))
	RecordDBQuery("select", "metrics_test_view", time.Millisecond, nil)
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "metrics_test_view"))
	if after-before != 1 {
		t.Errorf("expected one query error, got %v", after-before)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/latest", 200, 3*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/latest", "200")); got < 1 {
		t.Errorf("expected request counter >= 1, got %v", got)
	}
}

func TestSetDatabaseStats(t *testing.T) {
	SetDatabaseStats(models.RecordCounts{RawReadings: 49, Locations: 2, DeduplicatedReadings: 48}, true)
	if got := testutil.ToFloat64(DatabaseRows.WithLabelValues("raw_readings")); got != 49 {
		t.Errorf("raw_readings = %v, want 49", got)
	}
	if got := testutil.ToFloat64(DatabaseViewsReady); got != 1 {
		t.Errorf("views ready = %v, want 1", got)
	}

	SetDatabaseStats(models.RecordCounts{}, false)
	if got := testutil.ToFloat64(DatabaseViewsReady); got != 0 {
		t.Errorf("views ready = %v, want 0", got)
	}
}
