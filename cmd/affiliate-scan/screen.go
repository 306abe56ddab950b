// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"affiliate-scan/internal/cache"
	"affiliate-scan/internal/ci"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/formatters"
	"affiliate-scan/internal/ingest"
	"affiliate-scan/internal/observability"
	"affiliate-scan/internal/parallel"
	"affiliate-scan/internal/platform"
	"affiliate-scan/internal/suppressions"
)

func screenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen <records.jsonl|records.csv|->",
		Short: "Screen records for target-jurisdiction affiliation and assign tiers",
		Long: `Screen reads records as JSON Lines or CSV, runs each through the data
quality gate, pattern matcher, confidence aggregator and tier classifier, and
prints one result per record followed by a run summary.

With --db every batch is committed to a SQLite store together with a
checkpoint, and --resume continues an interrupted run of the same input.`,
		Example: `  affiliate-scan screen awards.jsonl
  affiliate-scan screen --confidence high,medium --matched-only awards.csv
  affiliate-scan screen --db runs.db --resume --format json awards.jsonl
  cat awards.jsonl | affiliate-scan screen -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScreen(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("input-format", "", "input format: jsonl or csv (default: from the file extension)")
	f.String("id-field", ingest.DefaultIDField, "record identifier field")
	f.String("confidence", "all", "confidence levels to display (high,medium,low,none or all)")
	f.Bool("matched-only", false, "only display matched records")
	f.Int("workers", 0, "screening workers (default: one per CPU)")
	f.Int("batch-size", core.DefaultBatchSize, "records committed per batch")
	f.Bool("resume", false, "resume the last unfinished run of this input from --db")
	f.String("observability", "off", "per-record observability: off, metrics or debug")
	f.Bool("progress", true, "show a progress indicator on an interactive terminal")
	f.String("fail-on", "", "exit 1 when a match at or above this confidence is found (high, medium, low, none)")
	f.StringP("output", "o", "", "write results to a file instead of stdout")
	f.String("suppressions", "", "reviewed-finding suppressions file (default: suppressions.yaml in the config dir)")
	f.Bool("show-suppressed", false, "include suppressed findings in the output")
	return cmd
}

func (a *app) runScreen(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	format, err := a.format()
	if err != nil {
		return err
	}
	formatter, err := formatters.Lookup(format)
	if err != nil {
		return err
	}
	pipelineConfig := *a.ciEnv.Config()
	if failOn := a.v.GetString("fail-on"); failOn != "" {
		if err := ci.ValidateFailOn(failOn); err != nil {
			return err
		}
		pipelineConfig.FailOn = strings.ToLower(failOn)
	}

	var inputFormat ingest.Format
	if name := a.v.GetString("input-format"); name != "" {
		if inputFormat, err = ingest.ParseFormat(name); err != nil {
			return err
		}
	}

	corp, err := a.loadCorpus()
	if err != nil {
		return err
	}
	pl, err := a.newScreenPool(corp, stderr)
	if err != nil {
		return err
	}

	runnerOpts := []core.RunnerOption{core.WithRunLogger(a.logger)}
	if pl.observer != nil {
		runnerOpts = append(runnerOpts, core.WithRunObserver(pl.observer))
	}
	resume := a.v.GetBool("resume")
	if dbPath := a.dbPath(resume); dbPath != "" {
		store, err := a.openStore(ctx, dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runnerOpts = append(runnerOpts, core.WithSink(store))
	}
	runner := core.NewRunner(pl.processor, corp.Version(), runnerOpts...)

	src, err := ingest.Open(input, inputFormat, a.v.GetString("id-field"))
	if err != nil {
		return err
	}
	defer src.Close()

	outPath := a.v.GetString("output")
	dest, closeDest, err := openOutput(outPath, stdout)
	if err != nil {
		return err
	}
	defer closeDest()
	opts, err := a.formatterOptions(dest)
	if err != nil {
		return err
	}

	var sm *suppressions.SuppressionManager
	if !a.v.GetBool("show-suppressed") {
		if sm, err = suppressions.NewSuppressionManager(a.v.GetString("suppressions")); err != nil {
			return err
		}
	}

	out := bufio.NewWriter(dest)
	defer out.Flush()
	streamer, streaming := formatter.(formatters.Streamer)
	if streaming {
		if err := streamer.StartScreening(out, opts); err != nil {
			return err
		}
	}

	var (
		results     []detector.ScreenResult
		suppressed  int
		hasFindings bool
		highest     = detector.ConfidenceNone
	)
	bar := a.newProgressBar(stderr)
	summary, err := runner.Run(ctx, src, core.RunConfig{
		Source:    sourceName(input),
		BatchSize: a.v.GetInt("batch-size"),
		Resume:    resume,
	}, func(batch []detector.ScreenResult) error {
		if bar != nil {
			_ = bar.Add(len(batch))
		}
		if sm != nil {
			var n int
			batch, n = sm.Apply(batch)
			suppressed += n
		}
		if found, level := highestMatch(batch); found {
			hasFindings = true
			highest = detector.MaxConfidence(highest, level)
		}
		if streaming {
			return streamer.WriteResults(out, batch, opts)
		}
		results = append(results, batch...)
		return nil
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}
	pl.logMetrics(a.logger)
	a.reportSuppressed(sm, suppressed, stderr)

	if streaming {
		err = streamer.FinishScreening(out, &summary, opts)
	} else {
		var output string
		if output, err = formatter.FormatScreening(formatters.ScreenReport{Results: results, Summary: &summary}, opts); err == nil {
			_, err = out.WriteString(output)
		}
	}
	if err == nil {
		err = out.Flush()
	}
	if err != nil {
		if outPath != "" {
			return platform.WrapFileError(err, outPath, "write")
		}
		return err
	}
	if outPath != "" {
		a.logger.Info("results written", "path", outPath, "records", summary.Screened)
	}

	code := ci.ExitCode(hasFindings, summary.Errors > 0, highest, &pipelineConfig)
	switch code {
	case ci.ExitFindings:
		return &exitError{code: code, msg: fmt.Sprintf("%d matched records, highest confidence %s", summary.Matched, highest)}
	case ci.ExitError:
		return &exitError{code: code, msg: fmt.Sprintf("%d records failed during screening", summary.Errors)}
	}
	return nil
}

// openOutput returns the destination for results: the --output file, or
// stdout when no file is named
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, platform.WrapFileError(err, path, "create")
	}
	return f, func() { f.Close() }, nil
}

// reportSuppressed tells the user how many findings were hidden and records
// when each rule last matched
func (a *app) reportSuppressed(sm *suppressions.SuppressionManager, suppressed int, stderr io.Writer) {
	if sm == nil || suppressed == 0 {
		return
	}
	fmt.Fprintf(stderr, "Suppressed %d findings based on suppression rules (use --show-suppressed to see them)\n", suppressed)
	if err := sm.Save(); err != nil {
		a.logger.Warn("could not record suppression last-seen times", "path", sm.ConfigPath(), "error", err)
	}
}

// highestMatch reports whether any result matched and the strongest
// confidence among matches
func highestMatch(results []detector.ScreenResult) (bool, detector.ConfidenceLevel) {
	found := false
	highest := detector.ConfidenceNone
	for _, r := range results {
		if !r.Detection.Matched {
			continue
		}
		found = true
		if r.Detection.HighestConfidence > highest {
			highest = r.Detection.HighestConfidence
		}
	}
	return found, highest
}

// screenPool is the worker pool for one screening run
type screenPool struct {
	processor *parallel.ParallelProcessor
	observer  *observability.StandardObserver
	memos     []*cache.Memo
}

// newScreenPool builds one screener per worker, each with its own
// normalization memo. Debug observability traces every step and forces
// one worker.
func (a *app) newScreenPool(corp *corpus.Corpus, stderr io.Writer) (*screenPool, error) {
	settings := a.cfg.ScreenSettings()
	workers := a.v.GetInt("workers")

	level, err := observability.ParseLevel(a.v.GetString("observability"))
	if err != nil {
		return nil, err
	}
	if a.v.GetBool("debug") {
		level = observability.ObservabilityDebug
	}

	p := &screenPool{}
	switch level {
	case observability.ObservabilityDebug:
		p.observer = observability.NewDebugObserver(stderr).StandardObserver
		if workers != 1 {
			a.logger.Info("debug tracing runs a single worker", "requested_workers", workers)
		}
		workers = 1
	case observability.ObservabilityMetrics:
		p.observer = observability.NewStandardObserver(level, stderr)
	}

	factory := func(workerID int) (parallel.Screener, error) {
		memo := cache.NewMemo(a.cfg.Cache.TTL, a.cfg.Cache.Cleanup)
		p.memos = append(p.memos, memo)
		return core.NewScreener(corp, settings,
			core.WithNormalizer(memo.Func()),
			core.WithObserver(p.observer),
			core.WithLogger(a.logger.With("worker", workerID)),
		)
	}
	if p.processor, err = parallel.NewParallelProcessor(workers, factory, p.observer); err != nil {
		return nil, err
	}
	return p, nil
}

// logMetrics reports pool and memo statistics when observability is on
func (p *screenPool) logMetrics(logger *slog.Logger) {
	if !p.observer.Enabled() {
		return
	}
	stats := p.processor.Stats()
	logger.Info("screening metrics",
		"workers", stats.WorkerCount,
		"batches", stats.Batches,
		"records", stats.TotalRecords,
		"failed", stats.FailedRecords,
		"signals", stats.TotalSignals,
		"avg_record_time", stats.AvgRecordTime,
		"total_duration", stats.TotalDuration)
	for i, memo := range p.memos {
		hits, misses, entries := memo.Stats()
		logger.Info("normalization memo", "worker", i, "hits", hits, "misses", misses, "entries", entries)
	}
}

// newProgressBar returns a spinner counting screened records, or nil when
// progress output is off or stderr is not a terminal
func (a *app) newProgressBar(stderr io.Writer) *progressbar.ProgressBar {
	tracing := a.v.GetBool("debug") || strings.EqualFold(a.v.GetString("observability"), "debug")
	if !a.v.GetBool("progress") || tracing || a.ciEnv.Config().Quiet || !isTerminal(stderr) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionEnableColorCodes(!a.v.GetBool("no-color")),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionSetDescription("[cyan]Screening records...[reset]"),
		progressbar.OptionSpinnerType(14),
	)
}

// sourceName keys checkpoints by the absolute input path
func sourceName(input string) string {
	if input == "-" {
		return "stdin"
	}
	if abs, err := filepath.Abs(input); err == nil {
		return abs
	}
	return input
}
