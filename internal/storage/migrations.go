// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExpectedSchemaVersion is the schema version this build reads and writes
const ExpectedSchemaVersion = 3

// Migration is one forward schema step
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Runs, detections and checkpoints",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					run_id TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					corpus_version TEXT NOT NULL,
					started_at TEXT NOT NULL,
					finished_at TEXT,
					status TEXT NOT NULL,
					summary TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS detections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					batch INTEGER NOT NULL,
					record_ref TEXT NOT NULL,
					matched INTEGER NOT NULL,
					data_quality_flag TEXT NOT NULL,
					highest_confidence TEXT NOT NULL,
					category TEXT,
					tier TEXT,
					importance_score REAL,
					error TEXT,
					result TEXT NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(run_id)
				)`,
				`CREATE INDEX idx_detections_run ON detections(run_id, id)`,
				`CREATE TABLE IF NOT EXISTS checkpoints (
					source TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					record_offset INTEGER NOT NULL,
					batches INTEGER NOT NULL,
					updated_at TEXT NOT NULL
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Index matched detections by category",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX idx_detections_matched ON detections(run_id, matched, category)`,
				`CREATE INDEX idx_runs_source ON runs(source, started_at)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Carry run totals on checkpoints",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE checkpoints ADD COLUMN summary TEXT`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies every migration newer than the database's user_version
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if current > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, ExpectedSchemaVersion)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		s.logger.Info("applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}

// SchemaVersion returns the database's user_version
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}
