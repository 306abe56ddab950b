// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"strings"

	"affiliate-scan/internal/detector"
)

// ConfidenceFilter selects results by their highest confidence
type ConfidenceFilter map[detector.ConfidenceLevel]bool

// ParseConfidenceLevels converts a comma-separated confidence level string into a filter.
// "all" or empty string enables every level, including none.
func ParseConfidenceLevels(levels string) (ConfidenceFilter, error) {
	result := ConfidenceFilter{
		detector.ConfidenceNone:   false,
		detector.ConfidenceLow:    false,
		detector.ConfidenceMedium: false,
		detector.ConfidenceHigh:   false,
	}

	if strings.TrimSpace(levels) == "all" || strings.TrimSpace(levels) == "" {
		for level := range result {
			result[level] = true
		}
		return result, nil
	}

	for _, level := range strings.Split(levels, ",") {
		if strings.TrimSpace(level) == "" {
			continue
		}
		parsed, err := detector.ParseConfidence(level)
		if err != nil {
			return nil, fmt.Errorf("confidence filter: %w", err)
		}
		result[parsed] = true
	}

	return result, nil
}

// Keep reports whether r passes the filter. A nil filter keeps everything.
func (f ConfidenceFilter) Keep(r detector.ScreenResult) bool {
	if f == nil {
		return true
	}
	return f[r.Detection.HighestConfidence]
}

// Apply returns the results that pass the filter, preserving order
func (f ConfidenceFilter) Apply(results []detector.ScreenResult) []detector.ScreenResult {
	kept := make([]detector.ScreenResult, 0, len(results))
	for _, r := range results {
		if f.Keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
