// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/logging"
)

// app is the state shared by all subcommands. cfg is populated by the root
// command's PersistentPreRunE before any subcommand runs.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "airlake",
		Short: "Air quality extraction and analytics pipeline",
		Long: `Airlake loads monthly air quality archives for a configured list of
locations into a local DuckDB file and maintains presentation views
(deduplicated readings, latest values, daily aggregates) for a dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newCreateDBCmd(a),
		newDestroyDBCmd(a),
		newExtractCmd(a),
		newTransformCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
	)
	return root
}

// loadConfig loads the configuration and initializes logging from it.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	a.cfg = cfg
	return nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
