// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func profilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles available to --profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			names := a.cfg.ListProfiles()
			if len(names) == 0 {
				fmt.Fprintln(out, "No profiles configured.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintf(out, "  %-16s %s\n", name, a.cfg.Profiles[name].Description)
			}
			return nil
		},
	}
}
