// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/airlake/internal/database"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/scripts"
)

func newCreateDBCmd(a *app) *cobra.Command {
	var allowExisting bool

	cmd := &cobra.Command{
		Use:   "create-db",
		Short: "Create the database file and apply the schema scripts",
		Long: `Create the DuckDB file and run the schema scripts in filename order.

An existing file is refused unless --allow-existing (or
database.allow_existing) is set, in which case only scripts not yet
recorded in the schema ledger are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Database
			if cmd.Flags().Changed("allow-existing") {
				cfg.AllowExisting = allowExisting
			}

			db, err := database.Create(cmd.Context(), &cfg, scripts.Dir(cfg.SchemaDir, scripts.Schema()))
			if err != nil {
				return err
			}
			if err := db.Close(); err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowExisting, "allow-existing", false, "reuse an existing database file")
	return cmd
}

func newDestroyDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy-db",
		Short: "Remove the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Database.Path
			if err := database.Destroy(path); err != nil {
				return err
			}
			logging.Info().Str("path", path).Msg("destroy-db finished")
			fmt.Fprintf(cmd.OutOrStdout(), "database removed: %s\n", path)
			return nil
		},
	}
}
