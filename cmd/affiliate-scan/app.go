// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"affiliate-scan/internal/ci"
	"affiliate-scan/internal/config"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/formatters"
	"affiliate-scan/internal/logging"
	"affiliate-scan/internal/paths"
	"affiliate-scan/internal/storage"
)

// app carries the resolved configuration shared by every command
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	ciEnv   *ci.Detector
}

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ci.ExitError
}

// initConfig resolves settings as flag > env > profile > config file > defaults
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	// cmd.Flags() includes the inherited persistent flags once parsed
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix("AFFILIATE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cfg, err := a.loadConfiguration(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if profile := a.v.GetString("profile"); profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.setDefaults()

	a.logger = logging.Setup(cmd.ErrOrStderr(), a.v.GetString("log-level"), a.v.GetString("log-format"))

	a.ciEnv = ci.NewDetector()
	if a.ciEnv.IsPipeline() {
		a.logger.Debug("pipeline environment detected", "fail_on", a.ciEnv.Config().FailOn)
	}
	return nil
}

// loadConfiguration loads the configuration file or returns default config.
// An explicit --config that fails to load is an error; a discovered one
// falls back to defaults with a warning.
func (a *app) loadConfiguration(stderr io.Writer) (*config.Config, error) {
	if a.cfgFile != "" {
		cfg, err := config.LoadConfig(a.cfgFile)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	configPath := config.FindConfigFile()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(stderr, "Using default configuration\n")
		cfg, _ = config.LoadConfig("")
	}
	return cfg, nil
}

// setDefaults seeds viper with the config file and profile values
func (a *app) setDefaults() {
	d := a.cfg.Defaults
	a.v.SetDefault("format", d.Format)
	a.v.SetDefault("confidence", d.ConfidenceLevels)
	a.v.SetDefault("matched-only", d.MatchedOnly)
	a.v.SetDefault("workers", d.Workers)
	a.v.SetDefault("id-field", d.IDField)
	a.v.SetDefault("verbose", d.Verbose)
	a.v.SetDefault("debug", d.Debug)
	a.v.SetDefault("no-color", d.NoColor)
	a.v.SetDefault("progress", d.Progress)
	a.v.SetDefault("log-level", d.LogLevel)
	a.v.SetDefault("log-format", d.LogFormat)
	a.v.SetDefault("corpus", a.cfg.Corpus.Path)
	a.v.SetDefault("db", a.cfg.Storage.Path)
	a.v.SetDefault("batch-size", a.cfg.Storage.BatchSize)
	a.v.SetDefault("suppressions", a.cfg.Suppressions.Path)
	a.v.SetDefault("claims-level", a.cfg.Claims.Level.String())
}

// loadCorpus loads the --corpus file or the embedded corpus
func (a *app) loadCorpus() (*corpus.Corpus, error) {
	c, err := corpus.LoadOrDefault(a.v.GetString("corpus"))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("corpus loaded", "source", c.Source(), "version", c.Version(), "categories", len(c.Categories()))
	return c, nil
}

// dbPath returns the configured store, or the platform default when
// fallback is set
func (a *app) dbPath(fallback bool) string {
	if p := a.v.GetString("db"); p != "" {
		return paths.NormalizePath(p)
	}
	if fallback {
		return paths.GetDefaultDatabase()
	}
	return ""
}

// openStore opens the result store at path
func (a *app) openStore(ctx context.Context, path string) (*storage.Store, error) {
	if err := paths.ValidatePath(path); err != nil {
		return nil, err
	}
	return storage.Open(ctx, path, storage.WithLogger(a.logger))
}

// formatterOptions builds output options from the resolved flags
func (a *app) formatterOptions(out io.Writer) (formatters.FormatterOptions, error) {
	levels, err := core.ParseConfidenceLevels(a.v.GetString("confidence"))
	if err != nil {
		return formatters.FormatterOptions{}, err
	}
	noColor := a.v.GetBool("no-color") || !isTerminal(out)
	if a.ciEnv != nil && a.ciEnv.Config().NoColor {
		noColor = true
	}
	return formatters.FormatterOptions{
		Confidence:  levels,
		MatchedOnly: a.v.GetBool("matched-only"),
		Verbose:     a.v.GetBool("verbose"),
		NoColor:     noColor,
	}, nil
}

// format returns the validated output format
func (a *app) format() (string, error) {
	name := strings.ToLower(a.v.GetString("format"))
	if _, err := formatters.Lookup(name); err != nil {
		return "", err
	}
	return name, nil
}

// formatList returns the registered formatter names for flag help
func formatList() string {
	return strings.Join(formatters.List(), ", ")
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
