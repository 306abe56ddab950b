// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/logging"
	"affiliate-scan/internal/observability"
	"affiliate-scan/internal/parallel"
)

// DefaultBatchSize is the number of records committed per sink transaction
const DefaultBatchSize = 500

// RecordSource yields records until io.EOF. An error wrapping
// ErrMalformedRecord skips one input and the source stays usable.
type RecordSource interface {
	Next() (detector.Record, error)
}

// Checkpoint marks the last committed batch of a run. Summary holds the
// run totals as of that batch so a resumed run reports the whole input.
type Checkpoint struct {
	RunID     string      `json:"run_id"`
	Source    string      `json:"source"`
	Offset    int64       `json:"offset"`
	Batches   int         `json:"batches"`
	UpdatedAt time.Time   `json:"updated_at"`
	Summary   *RunSummary `json:"summary,omitempty"`
}

// Sink persists screened batches together with their checkpoint
type Sink interface {
	StartRun(ctx context.Context, summary RunSummary) error
	WriteBatch(ctx context.Context, results []detector.ScreenResult, cp Checkpoint) error
	LoadCheckpoint(ctx context.Context, source string) (Checkpoint, bool, error)
	FinishRun(ctx context.Context, summary RunSummary) error
}

// BatchHandler receives each committed batch in input order
type BatchHandler func(results []detector.ScreenResult) error

// RunConfig describes one screening job
type RunConfig struct {
	// Source names the input; checkpoints are keyed by it
	Source    string
	BatchSize int
	Resume    bool
}

// Runner reads records in batches, screens them in parallel and commits
// each batch with its checkpoint
type Runner struct {
	processor     *parallel.ParallelProcessor
	corpusVersion string
	sink          Sink
	logger        *slog.Logger
	observer      *observability.StandardObserver
	now           func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithSink persists results and enables resume
func WithSink(s Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

// WithRunLogger sets the run logger
func WithRunLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithRunObserver tags observer output with the run id
func WithRunObserver(o *observability.StandardObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithRunClock fixes the clock used for summary timestamps
func WithRunClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner over a parallel processor
func NewRunner(p *parallel.ParallelProcessor, corpusVersion string, opts ...RunnerOption) *Runner {
	r := &Runner{
		processor:     p,
		corpusVersion: corpusVersion,
		logger:        logging.Discard(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run screens src to the end. Results reach handle only after their batch
// is committed to the sink, so a resumed run never repeats a handled record.
func (r *Runner) Run(ctx context.Context, src RecordSource, cfg RunConfig, handle BatchHandler) (RunSummary, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	summary := NewRunSummary(cfg.Source, r.corpusVersion, r.now())

	var offset int64
	batches := 0
	if cfg.Resume {
		if r.sink == nil {
			return summary, ErrResumeWithoutSink
		}
		cp, ok, err := r.sink.LoadCheckpoint(ctx, cfg.Source)
		if err != nil {
			return summary, fmt.Errorf("core: loading checkpoint: %w", err)
		}
		if ok {
			if err := skip(src, cp.Offset); err != nil {
				return summary, fmt.Errorf("core: resuming run %s: %w", cp.RunID, err)
			}
			if cp.Summary != nil && cp.Summary.RunID == cp.RunID {
				summary = cp.Summary.Clone()
			} else {
				// totals of the committed batches are unknown
				summary.Partial = true
			}
			summary.RunID = cp.RunID
			summary.ResumedFrom = cp.Offset
			offset = cp.Offset
			batches = cp.Batches
		}
	}
	if r.observer != nil {
		r.observer.SetRunID(summary.RunID)
	}
	if r.sink != nil {
		if err := r.sink.StartRun(ctx, summary); err != nil {
			return summary, fmt.Errorf("core: starting run: %w", err)
		}
	}
	r.logger.Info("screening started", "run_id", summary.RunID, "source", cfg.Source,
		"workers", r.processor.Workers(), "batch_size", cfg.BatchSize, "resumed_from", offset)

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		records, consumed, eof, err := r.readBatch(src, cfg.BatchSize, &summary)
		if err != nil {
			return summary, err
		}
		if consumed == 0 {
			break
		}

		screened, err := r.screen(ctx, records, &summary)
		if err != nil {
			return summary, err
		}

		offset += consumed
		batches++
		summary.Read += consumed
		if r.sink != nil {
			totals := summary.Clone()
			cp := Checkpoint{
				RunID:     summary.RunID,
				Source:    cfg.Source,
				Offset:    offset,
				Batches:   batches,
				UpdatedAt: r.now(),
				Summary:   &totals,
			}
			if err := r.sink.WriteBatch(ctx, screened, cp); err != nil {
				return summary, fmt.Errorf("core: committing batch %d: %w", batches, err)
			}
		}
		if handle != nil {
			if err := handle(screened); err != nil {
				return summary, err
			}
		}
		r.logger.Debug("batch committed", "run_id", summary.RunID, "batch", batches,
			"records", consumed, "offset", offset)

		if eof {
			break
		}
	}

	summary.Finish(r.now())
	if r.sink != nil {
		if err := r.sink.FinishRun(ctx, summary); err != nil {
			return summary, fmt.Errorf("core: finishing run: %w", err)
		}
	}
	r.logger.Info("screening finished", "run_id", summary.RunID, "screened", summary.Screened,
		"matched", summary.Matched, "malformed", summary.Malformed, "errors", summary.Errors,
		"duration_ms", summary.DurationMs)
	return summary, nil
}

// readBatch pulls up to size inputs from src. consumed counts malformed
// inputs too, since they advance the checkpoint offset.
func (r *Runner) readBatch(src RecordSource, size int, summary *RunSummary) (records []detector.Record, consumed int64, eof bool, err error) {
	records = make([]detector.Record, 0, size)
	for consumed < int64(size) {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return records, consumed, true, nil
		}
		if errors.Is(err, ErrMalformedRecord) {
			consumed++
			summary.Malformed++
			r.logger.Debug("skipping malformed input", "error", err)
			continue
		}
		if err != nil {
			return nil, 0, false, fmt.Errorf("core: reading records: %w", err)
		}
		consumed++
		records = append(records, rec)
	}
	return records, consumed, false, nil
}

// screen runs one batch and folds the results into summary
func (r *Runner) screen(ctx context.Context, records []detector.Record, summary *RunSummary) ([]detector.ScreenResult, error) {
	results, err := r.processor.ProcessBatch(ctx, records, nil)
	if err != nil {
		return nil, err
	}

	screened := make([]detector.ScreenResult, 0, len(results))
	for _, res := range results {
		switch {
		case errors.Is(res.Err, ErrMalformedRecord):
			summary.Malformed++
			r.logger.Debug("skipping malformed record", "error", res.Err)
		case res.Err != nil:
			summary.Errors++
			r.logger.Warn("record failed", "record", res.RecordRef, "error", res.Err)
		default:
			summary.Add(res.Screen)
			screened = append(screened, res.Screen)
		}
	}
	return screened, nil
}

// skip discards n inputs already committed by an earlier invocation
func skip(src RecordSource, n int64) error {
	for i := int64(0); i < n; i++ {
		_, err := src.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("checkpoint offset %d is beyond the end of the source (%d inputs)", n, i)
		}
		if err != nil && !errors.Is(err, ErrMalformedRecord) {
			return err
		}
	}
	return nil
}
