// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/extract"
	"github.com/tomtom215/airlake/internal/history"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/models"
	"github.com/tomtom215/airlake/internal/objectstore"
)

// errRunHadFailures is returned under --fail-on-errors.
var errRunHadFailures = errors.New("extraction finished with failed objects")

type extractFlags struct {
	start         string
	end           string
	locationsFile string
	dryRun        bool
	failOnErrors  bool
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch monthly archives and append them to the raw table",
		Long: `Fetch one archive object per configured location and month in
[--start, --end] and append its rows to the raw table.

Missing objects are skipped and transient errors are retried; both are
listed in the JSON report printed on completion. Every report is also
saved to the run history (see "airlake runs").`,
		Example: `  airlake extract --start 2024-01 --end 2024-06
  airlake extract --start 2024-01 --end 2024-01 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ecfg := a.cfg.Extract
			if cmd.Flags().Changed("locations-file") {
				ecfg.LocationsFile = f.locationsFile
			}
			if cmd.Flags().Changed("start") {
				ecfg.Start = f.start
			}
			if cmd.Flags().Changed("end") {
				ecfg.End = f.end
			}
			if cmd.Flags().Changed("fail-on-errors") {
				ecfg.FailOnErrors = f.failOnErrors
			}

			locations, err := config.LoadLocations(ecfg.LocationsFile)
			if err != nil {
				return err
			}
			dr, err := ecfg.DateRange()
			if err != nil {
				return &config.ValidationError{Field: "extract.start", Err: err}
			}

			if f.dryRun {
				return dryRun(cmd, &ecfg, locations, dr)
			}
			return runExtract(cmd.Context(), cmd, a.cfg, &ecfg, locations, dr)
		},
	}

	cmd.Flags().StringVar(&f.start, "start", "", "first month, YYYY-MM")
	cmd.Flags().StringVar(&f.end, "end", "", "last month, YYYY-MM (inclusive)")
	cmd.Flags().StringVarP(&f.locationsFile, "locations-file", "l", "", "YAML file listing the locations")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the object paths without fetching")
	cmd.Flags().BoolVar(&f.failOnErrors, "fail-on-errors", false, "exit non-zero when any object failed")
	return cmd
}

// dryRun prints the planned object paths, one per line.
func dryRun(cmd *cobra.Command, ecfg *config.ExtractConfig, locations []models.Location, dr models.DateRange) error {
	if err := dr.Validate(); err != nil {
		return &config.ValidationError{Field: "extract.start", Err: err}
	}
	paths, err := extract.NewPathTemplate(ecfg.PathTemplate)
	if err != nil {
		return err
	}
	tasks, err := extract.Plan(locations, dr, paths)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, t := range tasks {
		fmt.Fprintln(out, t.Path)
	}
	logging.Info().Int("tasks", len(tasks)).Str("range", dr.String()).Msg("Dry run planned")
	return nil
}

func runExtract(ctx context.Context, cmd *cobra.Command, cfg *config.Config, ecfg *config.ExtractConfig,
	locations []models.Location, dr models.DateRange) error {
	db, err := database.Open(&cfg.Database, database.ReadWrite)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return fmt.Errorf("%w (run \"airlake create-db\" first)", err)
		}
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, err := objectstore.New(&cfg.Source)
	if err != nil {
		return err
	}
	ex, err := extract.New(store, db, extract.OptionsFromConfig(ecfg))
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run history")
		}
	}()

	report, runErr := ex.Extract(ctx, locations, dr)
	if report == nil {
		return runErr
	}

	// Save with a fresh context so a canceled run is still recorded.
	if err := hist.Save(context.WithoutCancel(ctx), report); err != nil {
		logging.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to save run history")
	}
	if err := db.Checkpoint(context.WithoutCancel(ctx)); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint after extraction failed")
	}
	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if ecfg.FailOnErrors && report.FailedCount() > 0 {
		return fmt.Errorf("%w: %d of %d", errRunHadFailures, report.FailedCount(), report.Attempted)
	}
	return nil
}
