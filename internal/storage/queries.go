// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
)

// RunInfo is a stored run. Summary is set once the run has finished.
type RunInfo struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	Source        string           `json:"source" yaml:"source"`
	CorpusVersion string           `json:"corpus_version" yaml:"corpus_version"`
	Status        string           `json:"status" yaml:"status"`
	StartedAt     time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt    *time.Time       `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Detections    int              `json:"detections" yaml:"detections"`
	Summary       *core.RunSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

const runColumns = `r.run_id, r.source, r.corpus_version, r.status, r.started_at, r.finished_at, r.summary,
	(SELECT COUNT(*) FROM detections d WHERE d.run_id = r.run_id)`

// GetRun loads one run
func (s *Store) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.run_id = ?`, runID)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return info, err
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Detections returns a run's stored results in commit order
func (s *Store) Detections(ctx context.Context, runID string, matchedOnly bool) ([]detector.ScreenResult, error) {
	query := `SELECT result FROM detections WHERE run_id = ?`
	if matchedOnly {
		query += ` AND matched = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var out []detector.ScreenResult
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r detector.ScreenResult
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("failed to decode detection: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunInfo, error) {
	var (
		info     RunInfo
		started  string
		finished sql.NullString
		summary  sql.NullString
	)
	if err := row.Scan(&info.RunID, &info.Source, &info.CorpusVersion, &info.Status,
		&started, &finished, &summary, &info.Detections); err != nil {
		return RunInfo{}, err
	}
	info.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		info.FinishedAt = &t
	}
	if summary.Valid && summary.String != "" {
		var rs core.RunSummary
		if err := json.Unmarshal([]byte(summary.String), &rs); err != nil {
			return RunInfo{}, fmt.Errorf("failed to decode run summary: %w", err)
		}
		info.Summary = &rs
	}
	return info, nil
}
