// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/airlake/internal/api"
	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/supervisor"
	"github.com/tomtom215/airlake/internal/supervisor/services"
)

// statsInterval is how often the served database's row counts are refreshed.
const statsInterval = time.Minute

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the presentation views as a read-only JSON API",
		Long: `Open the database read-only and serve /api/v1/readings, /latest,
/daily, /anomalies and /locations, plus health probes and /metrics.
Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a.cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(&cfg.Database, database.ReadOnly)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	handler := api.NewHandler(db, cfg.Server.MaxRows, cfg.Server.Timeout)
	handler.EnableCache(cfg.Server.CacheTTL)
	defer handler.Close()
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&cfg.Server))
	if cfg.Server.RateLimitReqs == 0 {
		logging.Warn().Msg("Rate limiting is disabled (RATE_LIMIT_REQUESTS=0)")
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handler, mw).SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger("supervisor"), treeCfg)
	tree.AddDataService(services.NewStatsService(db, statsInterval))
	tree.AddAPIService(services.NewHTTPService(server, addr, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", addr).
		Str("db_path", db.Path()).
		Str("mode", db.Mode().String()).
		Msg("Starting query API")

	err = tree.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info().Msg("Shutdown complete")
		return nil
	}
	return err
}
