// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/airlake/internal/extract"
	"github.com/tomtom215/airlake/internal/history"
	"github.com/tomtom215/airlake/internal/logging"
)

type runsFlags struct {
	limit  int
	since  string
	asJSON bool
}

func newRunsCmd(a *app) *cobra.Command {
	var f runsFlags

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recent extraction runs",
		Long: `List extraction reports from the run history, newest first.
With a run ID, print that run's full report as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := history.Open(a.cfg.History)
			if err != nil {
				return err
			}
			defer func() {
				if err := hist.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing run history")
				}
			}()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				report, err := hist.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(out, report)
			}

			var reports []*extract.Report
			if f.since != "" {
				t, err := parseSince(f.since, time.Now())
				if err != nil {
					return err
				}
				if reports, err = hist.Since(ctx, t); err != nil {
					return err
				}
				if f.limit > 0 && len(reports) > f.limit {
					reports = reports[:f.limit]
				}
			} else if reports, err = hist.List(ctx, f.limit); err != nil {
				return err
			}

			if f.asJSON {
				return writeJSON(out, reports)
			}
			return writeRunsTable(out, reports)
		},
	}
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&f.since, "since", "", "only runs started after this time (RFC 3339, YYYY-MM-DD or a duration such as 72h)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print full reports as JSON")
	return cmd
}

// parseSince accepts a timestamp, a date, or a duration back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--since: cannot parse %q as a time, date or duration", s)
}

func writeRunsTable(w io.Writer, reports []*extract.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tATTEMPTED\tLOADED\tSKIPPED\tFAILED\tROWS\tANOMALOUS")
	for _, r := range reports {
		status := ""
		if r.Canceled {
			status = " (canceled)"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.RunID, status,
			r.StartedAt.Format(time.RFC3339),
			r.Duration().Round(time.Millisecond),
			r.Attempted, r.Loaded, r.SkippedCount(), r.FailedCount(),
			r.RowsInserted, r.AnomalousRows)
	}
	return tw.Flush()
}
