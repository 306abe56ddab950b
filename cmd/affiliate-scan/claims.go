// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"affiliate-scan/internal/ci"
	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/formatters"
	"affiliate-scan/internal/ingest"
	"affiliate-scan/internal/observability"
)

func claimsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Validate structured claims derived from screening results",
	}
	cmd.AddCommand(claimsValidateCmd(a))
	cmd.AddCommand(claimsChecksCmd(a))
	return cmd
}

func claimsValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <claims.json|claims.jsonl|claims.yaml|->",
		Short: "Run the validation chain on each claim and report run statistics",
		Example: `  affiliate-scan claims validate claims.json
  affiliate-scan claims validate --claims-level FORENSIC --format json claims.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClaims(cmd, args[0])
		},
	}
	cmd.Flags().String("claims-level", "STANDARD", "validation level: BASIC, STANDARD, RIGOROUS or FORENSIC")
	cmd.Flags().Bool("fail-on-invalid", false, "exit 1 when any claim fails validation")
	return cmd
}

func claimsChecksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List the checks each validation level runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, level := range []claims.Level{claims.LevelBasic, claims.LevelStandard, claims.LevelRigorous, claims.LevelForensic} {
				fmt.Fprintf(out, "%s:\n", level)
				for _, name := range claims.Checks(level) {
					fmt.Fprintf(out, "  - %s\n", name)
				}
			}
			return nil
		},
	}
}

func (a *app) runClaims(cmd *cobra.Command, input string) error {
	format, err := a.format()
	if err != nil {
		return err
	}
	opts, err := a.formatterOptions(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	settings := a.cfg.Claims
	if settings.Level, err = claims.ParseLevel(a.v.GetString("claims-level")); err != nil {
		return err
	}
	var validatorOpts []claims.Option
	if a.v.GetBool("debug") {
		validatorOpts = append(validatorOpts, claims.WithObserver(observability.NewStandardObserver(observability.ObservabilityDebug, cmd.ErrOrStderr())))
	}
	validator, err := claims.NewValidator(settings, validatorOpts...)
	if err != nil {
		return err
	}

	list, err := ingest.ReadClaimsFile(input)
	if err != nil {
		return err
	}

	results := make([]claims.ValidationResult, 0, len(list))
	for _, claim := range list {
		results = append(results, validator.Validate(claim))
	}
	stats := validator.Stats()
	a.logger.Info("claims validated", "total", stats.Total, "passed", stats.Passed, "failed", stats.Failed, "level", settings.Level.String())

	output, err := formatters.ExportClaims(format, formatters.ClaimsReport{Results: results, Stats: &stats}, opts)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)

	if a.v.GetBool("fail-on-invalid") && stats.Failed > 0 {
		return &exitError{code: ci.ExitFindings, msg: fmt.Sprintf("%d of %d claims failed validation", stats.Failed, stats.Total)}
	}
	return nil
}
