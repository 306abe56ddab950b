// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/formatters"
)

// ScreenResponse is the top-level structure of JSON/YAML screening output
type ScreenResponse struct {
	Summary *core.RunSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Results []ScreenEntry    `json:"results" yaml:"results"`
}

// ScreenEntry is one record in JSON/YAML output. Signals and tier rule
// detail are only included in verbose mode.
type ScreenEntry struct {
	RecordRef         string                   `json:"record_ref" yaml:"record_ref"`
	Matched           bool                     `json:"matched" yaml:"matched"`
	DataQualityFlag   detector.QualityFlag     `json:"data_quality_flag" yaml:"data_quality_flag"`
	DataQualityNote   string                   `json:"data_quality_note,omitempty" yaml:"data_quality_note,omitempty"`
	HighestConfidence detector.ConfidenceLevel `json:"highest_confidence" yaml:"highest_confidence"`
	Category          string                   `json:"category,omitempty" yaml:"category,omitempty"`
	Rationale         string                   `json:"rationale" yaml:"rationale"`
	Tier              string                   `json:"tier" yaml:"tier"`
	ImportanceScore   float64                  `json:"importance_score" yaml:"importance_score"`
	TierCategory      string                   `json:"tier_category" yaml:"tier_category"`
	Error             string                   `json:"error,omitempty" yaml:"error,omitempty"`
	Signals           []detector.SignalResult  `json:"signals,omitempty" yaml:"signals,omitempty"`
	TierRule          string                   `json:"tier_rule,omitempty" yaml:"tier_rule,omitempty"`
	MatchedTerm       string                   `json:"matched_term,omitempty" yaml:"matched_term,omitempty"`
}

// ClaimsResponse is the top-level structure of JSON/YAML claims output
type ClaimsResponse struct {
	Stats   *claims.RunStats          `json:"stats,omitempty" yaml:"stats,omitempty"`
	Results []claims.ValidationResult `json:"results" yaml:"results"`
}

// ConvertScreening filters a screening report and converts it for JSON/YAML
func ConvertScreening(report formatters.ScreenReport, options formatters.FormatterOptions) ScreenResponse {
	filtered := formatters.Filter(report.Results, options)
	entries := make([]ScreenEntry, 0, len(filtered))
	for _, r := range filtered {
		entries = append(entries, Entry(r, options))
	}
	return ScreenResponse{Summary: report.Summary, Results: entries}
}

// Entry converts one screening result
func Entry(r detector.ScreenResult, options formatters.FormatterOptions) ScreenEntry {
	d := r.Detection
	entry := ScreenEntry{
		RecordRef:         r.RecordRef,
		Matched:           d.Matched,
		DataQualityFlag:   d.DataQualityFlag,
		DataQualityNote:   d.DataQualityNote,
		HighestConfidence: d.HighestConfidence,
		Category:          d.Category,
		Rationale:         d.Rationale,
		Tier:              r.Tier.Tier,
		ImportanceScore:   r.Tier.ImportanceScore,
		TierCategory:      r.Tier.Category,
		Error:             r.Error,
	}
	if options.Verbose {
		entry.Signals = d.Signals
		entry.TierRule = r.Tier.Rule
		entry.MatchedTerm = r.Tier.MatchedTerm
	}
	return entry
}

// ConvertClaims converts a claims report for JSON/YAML
func ConvertClaims(report formatters.ClaimsReport) ClaimsResponse {
	results := report.Results
	if results == nil {
		results = []claims.ValidationResult{}
	}
	return ClaimsResponse{Stats: report.Stats, Results: results}
}
