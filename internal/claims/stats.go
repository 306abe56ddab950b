// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"fmt"
	"sort"
)

// IssueCount is the frequency of one issue category
type IssueCount struct {
	Category string `json:"category" yaml:"category"`
	Count    int    `json:"count" yaml:"count"`
}

// RunStats summarizes every claim validated since the last reset
type RunStats struct {
	Total           int            `json:"total" yaml:"total"`
	Passed          int            `json:"passed" yaml:"passed"`
	Failed          int            `json:"failed" yaml:"failed"`
	PassRate        float64        `json:"pass_rate" yaml:"pass_rate"`
	AverageScore    float64        `json:"average_confidence_score" yaml:"average_confidence_score"`
	IssueCounts     map[string]int `json:"issue_counts" yaml:"issue_counts"`
	TopIssues       []IssueCount   `json:"top_issues" yaml:"top_issues"`
	Recommendations []string       `json:"recommendations" yaml:"recommendations"`
}

// passRateFloor is the pass rate below which publication should be held
const passRateFloor = 0.8

// topIssueLimit bounds the TopIssues list
const topIssueLimit = 5

var recommendations = map[string]string{
	CategoryNullCheck:        "Populate required fields at extraction time; null checks are failing.",
	CategoryRange:            "Check unit conventions upstream; values fall outside the ranges their names imply.",
	CategoryNegativeCount:    "Investigate negative counts in the aggregation step.",
	CategoryTotals:           "Recompute totals from their parts before publishing.",
	CategoryComplement:       "Complementary rates do not sum to one; check for dropped categories.",
	CategoryOrdering:         "Start and end values are inverted; check date parsing.",
	CategoryParentChild:      "Child counts exceed their parents; check join logic.",
	CategoryCrossSource:      "Reconcile disagreeing sources or document why they differ.",
	CategoryEvidence:         "Gather more independent evidence, or an authoritative registry record for bombshell claims.",
	CategoryAuditTrail:       "Capture timestamp, source id, method, version and hash for every extraction.",
	CategoryProvenance:       "Retain source URLs and content hashes for every captured artifact.",
	CategoryMisconfiguration: "Review validator rules; some reference fields the claims do not carry.",
}

type statsAccumulator struct {
	total      int
	passed     int
	scoreSum   float64
	categories map[string]int
}

func newStatsAccumulator() statsAccumulator {
	return statsAccumulator{categories: make(map[string]int)}
}

func (s *statsAccumulator) add(result ValidationResult) {
	s.total++
	if result.Valid {
		s.passed++
	}
	s.scoreSum += result.ConfidenceScore
	for _, issue := range result.Issues {
		if issue.Severity == SeverityInfo {
			continue
		}
		s.categories[issue.Category]++
	}
}

func (s *statsAccumulator) snapshot() RunStats {
	stats := RunStats{
		Total:           s.total,
		Passed:          s.passed,
		Failed:          s.total - s.passed,
		IssueCounts:     make(map[string]int, len(s.categories)),
		TopIssues:       []IssueCount{},
		Recommendations: []string{},
	}
	if s.total > 0 {
		stats.PassRate = float64(s.passed) / float64(s.total)
		stats.AverageScore = s.scoreSum / float64(s.total)
	}

	for category, n := range s.categories {
		stats.IssueCounts[category] = n
		stats.TopIssues = append(stats.TopIssues, IssueCount{Category: category, Count: n})
	}
	sort.Slice(stats.TopIssues, func(i, j int) bool {
		if stats.TopIssues[i].Count != stats.TopIssues[j].Count {
			return stats.TopIssues[i].Count > stats.TopIssues[j].Count
		}
		return stats.TopIssues[i].Category < stats.TopIssues[j].Category
	})
	if len(stats.TopIssues) > topIssueLimit {
		stats.TopIssues = stats.TopIssues[:topIssueLimit]
	}

	if s.total > 0 && stats.PassRate < passRateFloor {
		stats.Recommendations = append(stats.Recommendations, fmt.Sprintf(
			"Pass rate %.0f%% is below %.0f%%; hold publication until the top issue categories are resolved.",
			stats.PassRate*100, passRateFloor*100))
	}
	for _, top := range stats.TopIssues {
		if rec, ok := recommendations[top.Category]; ok {
			stats.Recommendations = append(stats.Recommendations, rec)
		}
	}
	return stats
}
