// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/detector"
)

func TestParseConfidenceLevels_All(t *testing.T) {
	for _, input := range []string{"all", "", " all "} {
		f, err := ParseConfidenceLevels(input)
		require.NoError(t, err)
		for _, level := range []detector.ConfidenceLevel{detector.ConfidenceNone, detector.ConfidenceLow, detector.ConfidenceMedium, detector.ConfidenceHigh} {
			assert.True(t, f[level], "%q should enable %s", input, level)
		}
	}
}

func TestParseConfidenceLevels_Specific(t *testing.T) {
	f, err := ParseConfidenceLevels(" HIGH, medium ,")
	require.NoError(t, err)
	assert.True(t, f[detector.ConfidenceHigh])
	assert.True(t, f[detector.ConfidenceMedium])
	assert.False(t, f[detector.ConfidenceLow])
	assert.False(t, f[detector.ConfidenceNone])

	_, err = ParseConfidenceLevels("high,certain")
	assert.Error(t, err)
}

func TestConfidenceFilterApply(t *testing.T) {
	results := []detector.ScreenResult{
		{RecordRef: "a", Detection: detector.DetectionResult{HighestConfidence: detector.ConfidenceHigh}},
		{RecordRef: "b", Detection: detector.DetectionResult{HighestConfidence: detector.ConfidenceLow}},
		{RecordRef: "c", Detection: detector.DetectionResult{HighestConfidence: detector.ConfidenceHigh}},
	}
	f, err := ParseConfidenceLevels("high")
	require.NoError(t, err)

	kept := f.Apply(results)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].RecordRef)
	assert.Equal(t, "c", kept[1].RecordRef)

	var all ConfidenceFilter
	assert.Len(t, all.Apply(results), 3)
}

func TestRunSummaryAdd(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewRunSummary("awards.jsonl", "v1", start)
	other := NewRunSummary("awards.jsonl", "v1", start)
	assert.NotEqual(t, s.RunID, other.RunID)

	s.Add(detector.ScreenResult{
		Detection: detector.DetectionResult{Matched: true, Category: "entity_name", DataQualityFlag: detector.FlagUncertain, HighestConfidence: detector.ConfidenceHigh},
		Tier:      detector.TierAssignment{Tier: "TIER_1"},
	})
	s.Add(detector.ScreenResult{
		Detection: detector.DetectionResult{DataQualityFlag: detector.FlagNoData},
		Tier:      detector.TierAssignment{Tier: "UNDETERMINED"},
		Error:     "matcher panic: x",
	})
	s.Finish(start.Add(1500 * time.Millisecond))

	assert.Equal(t, 2, s.Screened)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.ByCategory["entity_name"])
	assert.Equal(t, 1, s.ByConfidence["HIGH"])
	assert.Equal(t, 1, s.ByConfidence["NONE"])
	assert.Equal(t, 1, s.ByFlag["NO_DATA"])
	assert.Equal(t, 1, s.ByTier["UNDETERMINED"])
	assert.Equal(t, int64(1500), s.DurationMs)
}
