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
	"github.com/tomtom215/airlake/internal/transform"
	"github.com/tomtom215/airlake/scripts"
)

func newTransformCmd(a *app) *cobra.Command {
	var planOnly bool

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Rebuild the presentation views",
		Long: `Run the transform scripts in dependency order. Each script replaces
its view, so running transform twice yields the same views.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := scripts.Dir(a.cfg.Transform.ScriptDir, scripts.Transform())

			if planOnly {
				steps, err := transform.Plan(fsys)
				if err != nil {
					return err
				}
				for _, s := range steps {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Name, s.Script.Name)
				}
				return nil
			}

			db, err := database.Open(&a.cfg.Database, database.ReadWrite)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing database")
				}
			}()

			result, err := transform.New(db).Transform(cmd.Context(), fsys)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&planOnly, "plan", false, "print the step order without running it")
	return cmd
}
