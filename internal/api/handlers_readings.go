// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/validation"
)

// viewRequest holds the shared query parameters of the view endpoints:
//
//	?location_id=2178,8118&parameter=pm25&start=2024-01-01&end=2024-02-01&limit=500
type viewRequest struct {
	LocationIDs []int64   `query:"location_id" validate:"max=100,dive,gt=0"`
	Parameters  []string  `query:"parameter" validate:"max=20,dive,parameter"`
	Start       time.Time `query:"start"`
	End         time.Time `query:"end"`
	Limit       int       `query:"limit" validate:"gte=0"`
}

// parseViewRequest reads and validates the query string.
func (h *Handler) parseViewRequest(r *http.Request) (database.ViewFilter, error) {
	q := r.URL.Query()

	var req viewRequest
	var err error
	if req.LocationIDs, err = parseInt64List("location_id", q["location_id"]); err != nil {
		return database.ViewFilter{}, err
	}
	req.Parameters = parseCommaSeparated(q["parameter"])
	if req.Start, err = parseTimeParam("start", q.Get("start")); err != nil {
		return database.ViewFilter{}, err
	}
	if req.End, err = parseTimeParam("end", q.Get("end")); err != nil {
		return database.ViewFilter{}, err
	}
	if req.Limit, err = parseIntParam("limit", q.Get("limit")); err != nil {
		return database.ViewFilter{}, err
	}

	if err := validation.Struct(&req); err != nil {
		return database.ViewFilter{}, err
	}
	if !req.Start.IsZero() && !req.End.IsZero() && !req.End.After(req.Start) {
		return database.ViewFilter{}, &validation.Error{Fields: []validation.FieldError{{
			Field:   "end",
			Tag:     "gtfield",
			Param:   "start",
			Value:   req.End,
			Message: "end must be after start",
		}}}
	}

	limit := req.Limit
	if limit == 0 || limit > h.maxRows {
		limit = h.maxRows
	}
	return database.ViewFilter{
		LocationIDs: req.LocationIDs,
		Parameters:  req.Parameters,
		Start:       req.Start,
		End:         req.End,
		Limit:       limit,
	}, nil
}

// Readings returns deduplicated readings.
//
//	GET /api/v1/readings
func (h *Handler) Readings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filter, err := h.parseViewRequest(r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	rows, err := cachedQuery(ctx, h, "readings", filter, func(ctx context.Context) ([]models.Reading, error) {
		return h.db.Readings(ctx, filter)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query readings", err)
		return
	}
	respondData(w, start, rows, len(rows))
}

// Latest returns the latest value per location and parameter.
//
//	GET /api/v1/latest
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filter, err := h.parseViewRequest(r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	rows, err := cachedQuery(ctx, h, "latest", filter, func(ctx context.Context) ([]models.LatestValue, error) {
		return h.db.LatestValues(ctx, filter)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query latest values", err)
		return
	}
	respondData(w, start, rows, len(rows))
}

// Daily returns daily aggregates.
//
//	GET /api/v1/daily
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filter, err := h.parseViewRequest(r)
	if err != nil {
		respondValidation(w, err)
		return
	}
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	rows, err := cachedQuery(ctx, h, "daily", filter, func(ctx context.Context) ([]models.DailyAggregate, error) {
		return h.db.DailyAggregates(ctx, filter)
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query daily aggregates", err)
		return
	}
	respondData(w, start, rows, len(rows))
}

// Anomalies lists readings from unconfigured locations.
//
//	GET /api/v1/anomalies
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	rows, err := cachedQuery(ctx, h, "anomalies", nil, h.db.LocationAnomalies)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query location anomalies", err)
		return
	}
	respondData(w, start, rows, len(rows))
}

// Locations lists the configured locations.
//
//	GET /api/v1/locations
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.queryContext(r.Context())
	defer cancel()

	rows, err := cachedQuery(ctx, h, "locations", nil, h.db.Locations)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query locations", err)
		return
	}
	respondData(w, start, rows, len(rows))
}
