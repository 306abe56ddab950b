// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func corpusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the keyword corpus",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the corpus, then print term counts per category",
		Example: `  affiliate-scan corpus check
  affiliate-scan corpus check --corpus my-corpus.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCorpus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Corpus: %s\n", c.Source())
			fmt.Fprintf(out, "Version: %s\n", c.Version())
			total := 0
			for _, category := range c.Categories() {
				n := c.Count(category)
				total += n
				fmt.Fprintf(out, "  %-28s %5d\n", category, n)
			}
			fmt.Fprintf(out, "  %-28s %5d\n", "total", total)
			return nil
		},
	})
	return cmd
}
