// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/logging"
	"affiliate-scan/internal/platform"
	"affiliate-scan/internal/resilience"
)

// Run statuses
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("storage: run not found")

// Store persists screening runs in SQLite. It implements core.Sink.
type Store struct {
	db     *sql.DB
	path   string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

var _ core.Sink = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithRetry sets the backoff used when the database is busy
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Store) {
		s.retry = cfg
	}
}

// Open opens or creates the database at path and migrates it
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", platform.WrapFileError(err, filepath.Dir(path), "create"))
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized by SQLite anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		retry:  resilience.DefaultRetryConfig(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// StartRun records a run as running. Resuming an existing run id only
// resets its status.
func (s *Store) StartRun(ctx context.Context, summary core.RunSummary) error {
	return s.withRetry(ctx, "start run", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (run_id, source, corpus_version, started_at, status)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(run_id) DO UPDATE SET status = excluded.status, finished_at = NULL`,
			summary.RunID, summary.Source, summary.CorpusVersion, formatTime(summary.StartedAt), StatusRunning)
		return err
	})
}

// WriteBatch stores results and advances the checkpoint in one transaction
func (s *Store) WriteBatch(ctx context.Context, results []detector.ScreenResult, cp core.Checkpoint) error {
	var totals sql.NullString
	if cp.Summary != nil {
		body, err := json.Marshal(cp.Summary)
		if err != nil {
			return fmt.Errorf("failed to encode checkpoint totals: %w", err)
		}
		totals = sql.NullString{String: string(body), Valid: true}
	}
	return s.withRetry(ctx, "write batch", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO detections (run_id, batch, record_ref, matched, data_quality_flag,
				highest_confidence, category, tier, importance_score, error, result)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range results {
			body, err := json.Marshal(r)
			if err != nil {
				return resilience.NewPermanentError("encoding result "+r.RecordRef, err)
			}
			d := r.Detection
			if _, err := stmt.ExecContext(ctx, cp.RunID, cp.Batches, r.RecordRef, d.Matched,
				string(d.DataQualityFlag), d.HighestConfidence.String(), d.Category,
				r.Tier.Tier, r.Tier.ImportanceScore, r.Error, string(body)); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (source, run_id, record_offset, batches, updated_at, summary)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(source) DO UPDATE SET run_id = excluded.run_id,
				record_offset = excluded.record_offset, batches = excluded.batches,
				updated_at = excluded.updated_at, summary = excluded.summary`,
			cp.Source, cp.RunID, cp.Offset, cp.Batches, formatTime(cp.UpdatedAt), totals); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// LoadCheckpoint returns the checkpoint of the unfinished run over source
func (s *Store) LoadCheckpoint(ctx context.Context, source string) (core.Checkpoint, bool, error) {
	var (
		cp      = core.Checkpoint{Source: source}
		updated string
		totals  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, record_offset, batches, updated_at, summary FROM checkpoints WHERE source = ?`, source).
		Scan(&cp.RunID, &cp.Offset, &cp.Batches, &updated, &totals)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Checkpoint{}, false, nil
	}
	if err != nil {
		return core.Checkpoint{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	cp.UpdatedAt = parseTime(updated)
	if totals.Valid {
		var summary core.RunSummary
		if err := json.Unmarshal([]byte(totals.String), &summary); err != nil {
			s.logger.Warn("ignoring unreadable checkpoint totals", "source", source, "error", err)
		} else {
			cp.Summary = &summary
		}
	}
	return cp, true, nil
}

// FinishRun stores the summary and clears the source's checkpoint
func (s *Store) FinishRun(ctx context.Context, summary core.RunSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return s.withRetry(ctx, "finish run", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, status = ?, summary = ? WHERE run_id = ?`,
			formatTime(summary.FinishedAt), StatusFinished, string(body), summary.RunID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return resilience.NewPermanentError("finish run "+summary.RunID, ErrRunNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM checkpoints WHERE source = ? AND run_id = ?`, summary.Source, summary.RunID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (s *Store) withRetry(ctx context.Context, op string, fn resilience.RetryableOperation) error {
	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error) {
		s.logger.Warn("retrying store operation", "operation", op, "attempt", attempt, "error", err)
	}
	if err := resilience.RetryWithBackoff(ctx, cfg, fn); err != nil {
		return fmt.Errorf("storage: %s: %w", op, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
