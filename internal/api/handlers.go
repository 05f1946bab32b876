// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package api

import (
	"context"
	"time"

	"github.com/tomtom215/airlake/internal/cache"
	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/metrics"
	"github.com/tomtom215/airlake/internal/models"
)

// QueryStore is the read side of the database used by the handlers.
// *database.DB implements it.
type QueryStore interface {
	Readings(ctx context.Context, f database.ViewFilter) ([]models.Reading, error)
	LatestValues(ctx context.Context, f database.ViewFilter) ([]models.LatestValue, error)
	DailyAggregates(ctx context.Context, f database.ViewFilter) ([]models.DailyAggregate, error)
	LocationAnomalies(ctx context.Context) ([]models.LocationAnomaly, error)
	Locations(ctx context.Context) ([]models.Location, error)
	RecordCounts(ctx context.Context) (models.RecordCounts, error)
	ViewsReady(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
	Path() string
}

// Handler serves the query API.
type Handler struct {
	db        QueryStore
	maxRows   int
	timeout   time.Duration
	startTime time.Time

	// cache holds view results when enabled; nil disables caching.
	cache *cache.Cache[any]
}

// NewHandler creates a handler. maxRows caps every list response; timeout
// bounds each database query.
func NewHandler(db QueryStore, maxRows int, timeout time.Duration) *Handler {
	if maxRows <= 0 {
		maxRows = 50000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		db:        db,
		maxRows:   maxRows,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// queryContext bounds a handler's database work.
func (h *Handler) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.timeout)
}

// EnableCache caches view results for ttl. Only safe while nothing writes
// to the served database file, which holds for serve's read-only mode.
func (h *Handler) EnableCache(ttl time.Duration) {
	if ttl <= 0 || h.cache != nil {
		return
	}
	h.cache = cache.New[any](ttl)
}

// Close stops the cache janitor.
func (h *Handler) Close() {
	if h.cache != nil {
		h.cache.Close()
	}
}

// cachedQuery runs query, or returns its cached result for the same name
// and params. Errors are never cached.
func cachedQuery[T any](ctx context.Context, h *Handler, name string, params interface{},
	query func(context.Context) ([]T, error)) ([]T, error) {
	if h.cache == nil {
		return query(ctx)
	}

	key := cache.GenerateKey(name, params)
	if v, ok := h.cache.Get(key); ok {
		if rows, ok := v.([]T); ok {
			metrics.RecordCacheLookup(name, true)
			return rows, nil
		}
	}
	metrics.RecordCacheLookup(name, false)

	rows, err := query(ctx)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, rows)
	return rows, nil
}
