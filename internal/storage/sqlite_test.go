// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/core"
	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/ingest"
	"affiliate-scan/internal/parallel"
	"affiliate-scan/internal/resilience"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "nested", "scan.db")
	}
	s, err := Open(context.Background(), path, WithRetry(resilience.RetryConfig{MaxRetries: 1, InitialInterval: time.Millisecond}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(ref string, matched bool) detector.ScreenResult {
	flag := detector.FlagUncertain
	conf := detector.ConfidenceNone
	category := ""
	if matched {
		conf = detector.ConfidenceHigh
		category = "entity"
	}
	return detector.ScreenResult{
		RecordRef: ref,
		Detection: detector.DetectionResult{
			RecordRef:         ref,
			Matched:           matched,
			Signals:           []detector.SignalResult{},
			DataQualityFlag:   flag,
			HighestConfidence: conf,
			Category:          category,
			Rationale:         "test",
		},
		Tier: detector.TierAssignment{RecordRef: ref, Tier: "TIER_4", ImportanceScore: 0.1, Category: "unclassified"},
	}
}

func TestOpenMigrates(t *testing.T) {
	s := openTestStore(t, "")
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)

	// Reopening an up-to-date database is a no-op
	s.Close()
	again := openTestStore(t, s.Path())
	v, err = again.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)

	_, err = Open(context.Background(), "")
	assert.Error(t, err)
}

func TestSinkLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	summary := core.NewRunSummary("awards.jsonl", "2026.1", testNow)
	require.NoError(t, s.StartRun(ctx, summary))

	_, ok, err := s.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)

	cp := core.Checkpoint{RunID: summary.RunID, Source: "awards.jsonl", Offset: 2, Batches: 1, UpdatedAt: testNow}
	require.NoError(t, s.WriteBatch(ctx, []detector.ScreenResult{result("a", true), result("b", false)}, cp))

	got, ok, err := s.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Summary)

	totals := summary.Clone()
	totals.Read, totals.Screened, totals.Matched = 3, 3, 1
	totals.ByTier["TIER_4"] = 3
	cp.Offset, cp.Batches, cp.Summary = 3, 2, &totals
	require.NoError(t, s.WriteBatch(ctx, []detector.ScreenResult{result("c", false)}, cp))

	got, ok, err = s.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.RunID, got.RunID)
	assert.Equal(t, int64(3), got.Offset)
	assert.Equal(t, 2, got.Batches)
	assert.True(t, testNow.Equal(got.UpdatedAt))
	require.NotNil(t, got.Summary)
	assert.Equal(t, int64(3), got.Summary.Read)
	assert.Equal(t, 1, got.Summary.Matched)
	assert.Equal(t, 3, got.Summary.ByTier["TIER_4"])

	all, err := s.Detections(ctx, summary.RunID, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].RecordRef)
	assert.Equal(t, detector.ConfidenceHigh, all[0].Detection.HighestConfidence)
	assert.Equal(t, "c", all[2].RecordRef)

	matched, err := s.Detections(ctx, summary.RunID, true)
	require.NoError(t, err)
	require.Len(t, matched, 1)

	info, err := s.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, info.Status)
	assert.Equal(t, 3, info.Detections)
	assert.Nil(t, info.Summary)

	summary.Matched = 1
	summary.Finish(testNow.Add(time.Minute))
	require.NoError(t, s.FinishRun(ctx, summary))

	_, ok, err = s.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	assert.False(t, ok, "finishing a run clears its checkpoint")

	info, err = s.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, info.Status)
	require.NotNil(t, info.Summary)
	assert.Equal(t, 1, info.Summary.Matched)
	require.NotNil(t, info.FinishedAt)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t, "")
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.FinishRun(context.Background(), core.NewRunSummary("x", "v", testNow))
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	summary := core.NewRunSummary("awards.jsonl", "v", testNow)
	require.NoError(t, s.StartRun(ctx, summary))

	// A detection for an unknown run violates the foreign key, so neither
	// the rows nor the checkpoint are written.
	cp := core.Checkpoint{RunID: "no-such-run", Source: "awards.jsonl", Offset: 1, Batches: 1, UpdatedAt: testNow}
	err := s.WriteBatch(ctx, []detector.ScreenResult{result("a", true)}, cp)
	require.Error(t, err)

	_, ok, err := s.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingStore fails one batch to simulate a crash mid-run
type failingStore struct {
	*Store
	failOn int
}

func (f *failingStore) WriteBatch(ctx context.Context, results []detector.ScreenResult, cp core.Checkpoint) error {
	if cp.Batches == f.failOn {
		return errors.New("power loss")
	}
	return f.Store.WriteBatch(ctx, results, cp)
}

func newRunner(t *testing.T, sink core.Sink) *core.Runner {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	pp, err := parallel.NewParallelProcessor(2, func(int) (parallel.Screener, error) {
		return core.NewScreener(c, core.DefaultSettings())
	}, nil)
	require.NoError(t, err)
	return core.NewRunner(pp, c.Version(), core.WithSink(sink), core.WithRunClock(func() time.Time { return testNow }))
}

const awardsJSONL = `{"id": "r0", "fields": {"name": "Acme Supply", "country": "United States", "description": "office furniture"}}
{"id": "r1", "fields": {"name": "Huawei Technologies", "country": "US"}}
{"id": "r2", "fields": {"name": "Acme Supply", "country": "United States", "description": "office furniture"}}
{"id": "r3", "fields": {"name": "Huawei Technologies", "country": "US"}}
{"id": "r4", "fields": {"name": "Acme Supply", "country": "United States", "description": "office furniture"}}
`

func TestRunnerResumesFromStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scan.db")
	cfg := core.RunConfig{Source: "awards.jsonl", BatchSize: 2, Resume: true}

	first := openTestStore(t, path)
	_, err := newRunner(t, &failingStore{Store: first, failOn: 2}).
		Run(ctx, ingest.NewJSONLReader(strings.NewReader(awardsJSONL), ingest.DefaultIDField), cfg, nil)
	require.ErrorContains(t, err, "power loss")
	first.Close()

	second := openTestStore(t, path)
	cp, ok, err := second.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), cp.Offset)

	var handled []string
	summary, err := newRunner(t, second).
		Run(ctx, ingest.NewJSONLReader(strings.NewReader(awardsJSONL), ingest.DefaultIDField), cfg,
			func(batch []detector.ScreenResult) error {
				for _, r := range batch {
					handled = append(handled, r.RecordRef)
				}
				return nil
			})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3", "r4"}, handled)
	assert.Equal(t, cp.RunID, summary.RunID)
	assert.Equal(t, int64(2), summary.ResumedFrom)
	assert.False(t, summary.Partial)
	assert.Equal(t, int64(5), summary.Read)
	assert.Equal(t, 5, summary.Screened)
	assert.Equal(t, 2, summary.Matched)

	stored, err := second.Detections(ctx, summary.RunID, false)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for i, r := range stored {
		assert.Equal(t, "r"+string(rune('0'+i)), r.RecordRef)
	}

	matched, err := second.Detections(ctx, summary.RunID, true)
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	info, err := second.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, info.Status)
	require.NotNil(t, info.Summary)
	assert.Equal(t, int64(5), info.Summary.Read)
	assert.Equal(t, 2, info.Summary.Matched)

	_, ok, err = second.LoadCheckpoint(ctx, "awards.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)
}
