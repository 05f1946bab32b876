// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/metrics"
	"github.com/tomtom215/airlake/internal/models"
)

// StatsSource is the read side of the served database.
type StatsSource interface {
	RecordCounts(ctx context.Context) (models.RecordCounts, error)
	ViewsReady(ctx context.Context) (bool, error)
}

// StatsService polls row counts and view readiness into Prometheus gauges.
type StatsService struct {
	source   StatsSource
	interval time.Duration
}

// NewStatsService polls source every interval (default one minute).
func NewStatsService(source StatsSource, interval time.Duration) *StatsService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsService{source: source, interval: interval}
}

// Serve implements suture.Service. A failed poll returns an error so the
// supervisor restarts the service with backoff.
func (s *StatsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *StatsService) poll(ctx context.Context) error {
	ready, err := s.source.ViewsReady(ctx)
	if err != nil {
		return fmt.Errorf("check views: %w", err)
	}
	counts, err := s.source.RecordCounts(ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	metrics.SetDatabaseStats(counts, ready)
	logging.Debug().
		Int64("raw_readings", counts.RawReadings).
		Int64("locations", counts.Locations).
		Bool("views_ready", ready).
		Msg("Database stats refreshed")
	return nil
}

// String names the service in supervisor events.
func (s *StatsService) String() string {
	return "database-stats"
}
