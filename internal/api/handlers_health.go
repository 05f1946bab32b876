// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/airlake/internal/models"
)

// HealthLive reports that the process is up. It never touches the database.
//
//	GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:     "alive",
			UptimeSecs: time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady reports whether the database answers and the presentation
// views exist. It returns 503 until both hold.
//
//	GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	health := models.HealthStatus{
		Status:       "ready",
		Database:     "connected",
		UptimeSecs:   time.Since(h.startTime).Seconds(),
		DatabasePath: h.db.Path(),
	}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		health.Status, health.Database = "not_ready", "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		ready, err := h.db.ViewsReady(ctx)
		health.ViewsReady = err == nil && ready
		if !health.ViewsReady {
			health.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
		if counts, err := h.db.RecordCounts(ctx); err == nil {
			health.RawReadings = counts.RawReadings
		}
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     health,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
