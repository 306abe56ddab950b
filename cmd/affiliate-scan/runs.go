// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"affiliate-scan/internal/formatters"
	"affiliate-scan/internal/storage"
)

func runsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect screening runs stored with --db",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runsList(cmd)
		},
	}
	list.Flags().Int("limit", 20, "maximum runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored results and summary of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runsShow(cmd, args[0])
		},
	}
	show.Flags().String("confidence", "all", "confidence levels to display (high,medium,low,none or all)")
	show.Flags().Bool("matched-only", false, "only display matched records")

	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) runsList(cmd *cobra.Command) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx, a.dbPath(true))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, a.v.GetInt("limit"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch a.v.GetString("format") {
	case "json":
		return writeJSON(out, runs)
	case "yaml":
		return yaml.NewEncoder(out).Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs stored in %s\n", store.Path())
		return nil
	}
	fmt.Fprintf(out, "%-36s  %-8s  %-16s  %10s  %s\n", "RUN", "STATUS", "STARTED", "DETECTIONS", "SOURCE")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-8s  %-16s  %10s  %s\n",
			r.RunID, r.Status, humanize.Time(r.StartedAt), humanize.Comma(int64(r.Detections)), r.Source)
	}
	return nil
}

func (a *app) runsShow(cmd *cobra.Command, runID string) error {
	ctx := cmd.Context()
	format, err := a.format()
	if err != nil {
		return err
	}
	opts, err := a.formatterOptions(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx, a.dbPath(true))
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	results, err := store.Detections(ctx, runID, opts.MatchedOnly)
	if err != nil {
		return err
	}
	if info.Status != storage.StatusFinished {
		a.logger.Warn("run has not finished; showing committed batches only", "run_id", runID, "status", info.Status)
	}

	output, err := formatters.ExportScreening(format, formatters.ScreenReport{Results: results, Summary: info.Summary}, opts)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
