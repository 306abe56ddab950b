// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"time"

	"github.com/google/uuid"

	"affiliate-scan/internal/detector"
)

// RunSummary is the run-level roll-up of a screening job
type RunSummary struct {
	RunID         string         `json:"run_id" yaml:"run_id"`
	Source        string         `json:"source" yaml:"source"`
	CorpusVersion string         `json:"corpus_version" yaml:"corpus_version"`
	StartedAt     time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time      `json:"finished_at" yaml:"finished_at"`
	DurationMs    int64          `json:"duration_ms" yaml:"duration_ms"`
	ResumedFrom   int64          `json:"resumed_from,omitempty" yaml:"resumed_from,omitempty"`
	Partial       bool           `json:"partial,omitempty" yaml:"partial,omitempty"`
	Read          int64          `json:"records_read" yaml:"records_read"`
	Screened      int            `json:"records_screened" yaml:"records_screened"`
	Matched       int            `json:"matched" yaml:"matched"`
	Malformed     int            `json:"malformed" yaml:"malformed"`
	Errors        int            `json:"errors" yaml:"errors"`
	ByFlag        map[string]int `json:"by_flag" yaml:"by_flag"`
	ByConfidence  map[string]int `json:"by_confidence" yaml:"by_confidence"`
	ByCategory    map[string]int `json:"by_category" yaml:"by_category"`
	ByTier        map[string]int `json:"by_tier" yaml:"by_tier"`
}

// NewRunSummary starts a summary with a fresh run id
func NewRunSummary(source, corpusVersion string, now time.Time) RunSummary {
	return RunSummary{
		RunID:         uuid.NewString(),
		Source:        source,
		CorpusVersion: corpusVersion,
		StartedAt:     now,
		ByFlag:        make(map[string]int),
		ByConfidence:  make(map[string]int),
		ByCategory:    make(map[string]int),
		ByTier:        make(map[string]int),
	}
}

// Add counts one screened record
func (s *RunSummary) Add(r detector.ScreenResult) {
	s.Screened++
	if r.Error != "" {
		s.Errors++
	}
	d := r.Detection
	if d.Matched {
		s.Matched++
		if d.Category != "" {
			s.ByCategory[d.Category]++
		}
	}
	s.ByFlag[string(d.DataQualityFlag)]++
	s.ByConfidence[d.HighestConfidence.String()]++
	if r.Tier.Tier != "" {
		s.ByTier[r.Tier.Tier]++
	}
}

// Clone returns a copy that shares no maps with s
func (s RunSummary) Clone() RunSummary {
	out := s
	out.ByFlag = cloneCounts(s.ByFlag)
	out.ByConfidence = cloneCounts(s.ByConfidence)
	out.ByCategory = cloneCounts(s.ByCategory)
	out.ByTier = cloneCounts(s.ByTier)
	return out
}

func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Finish stamps the end time and duration
func (s *RunSummary) Finish(now time.Time) {
	s.FinishedAt = now
	s.DurationMs = now.Sub(s.StartedAt).Milliseconds()
}
