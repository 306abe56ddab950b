// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"affiliate-scan/internal/version"

	// Register output formatters
	_ "affiliate-scan/internal/formatters/csv"
	_ "affiliate-scan/internal/formatters/json"
	_ "affiliate-scan/internal/formatters/jsonl"
	_ "affiliate-scan/internal/formatters/text"
	_ "affiliate-scan/internal/formatters/yaml"
)

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree around a fresh viper instance
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "affiliate-scan",
		Short: "Screen records for jurisdiction affiliation and validate published claims",
		Long: `affiliate-scan screens tabular records (awards, contracts, shipments) for
affiliation with a configured set of target jurisdictions, assigns each
matched record a strategic-importance tier, and validates structured claims
derived from the results before they are published.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./affiliate-scan.yaml or the platform config dir)")
	flags.String("profile", "", "named profile from the config file")
	flags.String("format", "text", "output format: "+formatList())
	flags.String("corpus", "", "corpus file (default: embedded corpus)")
	flags.String("db", "", "SQLite result store")
	flags.Bool("verbose", false, "show signals and tier detail")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("debug", false, "trace every pipeline step on stderr")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	root.AddCommand(screenCmd(a))
	root.AddCommand(claimsCmd(a))
	root.AddCommand(corpusCmd(a))
	root.AddCommand(runsCmd(a))
	root.AddCommand(profilesCmd(a))
	root.AddCommand(suppressCmd(a))
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
