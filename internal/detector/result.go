// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// SignalType classifies what a signal is evidence of
type SignalType string

const (
	SignalCountry        SignalType = "country"
	SignalEntityName     SignalType = "entity_name"
	SignalSourcedProduct SignalType = "sourced_product"
)

// MatchMode records how a term was found in a field
type MatchMode string

const (
	MatchNone      MatchMode = ""
	MatchExact     MatchMode = "exact"
	MatchBoundary  MatchMode = "boundary"
	MatchCollapsed MatchMode = "collapsed"
)

// SignalResult is a single piece of evidence traced to a literal match
type SignalResult struct {
	Type         SignalType      `json:"signal_type" yaml:"signal_type"`
	Field        string          `json:"field" yaml:"field"`
	Role         FieldRole       `json:"role" yaml:"role"`
	MatchedValue string          `json:"matched_value" yaml:"matched_value"`
	Confidence   ConfidenceLevel `json:"confidence_level" yaml:"confidence_level"`
	Rule         string          `json:"rule" yaml:"rule"`
	MatchMode    MatchMode       `json:"match_mode" yaml:"match_mode"`
	Rationale    string          `json:"rationale" yaml:"rationale"`
}

// QualityFlag is the Data Quality Gate verdict on a record
type QualityFlag string

const (
	FlagNoData             QualityFlag = "NO_DATA"
	FlagLowData            QualityFlag = "LOW_DATA"
	FlagConfirmedTarget    QualityFlag = "CONFIRMED_TARGET"
	FlagConfirmedNonTarget QualityFlag = "CONFIRMED_NON_TARGET"
	FlagUncertain          QualityFlag = "UNCERTAIN"
)

// IsConfirmed reports whether the flag resolves a record without matching
func (f QualityFlag) IsConfirmed() bool {
	return f == FlagConfirmedTarget || f == FlagConfirmedNonTarget
}

// FlagConfidence is the confidence implied by a gate flag when no signals
// were computed for the record.
func FlagConfidence(flag QualityFlag) ConfidenceLevel {
	if flag == FlagConfirmedTarget {
		return ConfidenceHigh
	}
	return ConfidenceNone
}

// DetectionResult is the record-level verdict
type DetectionResult struct {
	RecordRef         string          `json:"record_ref" yaml:"record_ref"`
	Matched           bool            `json:"matched" yaml:"matched"`
	Signals           []SignalResult  `json:"signals" yaml:"signals"`
	DataQualityFlag   QualityFlag     `json:"data_quality_flag" yaml:"data_quality_flag"`
	DataQualityNote   string          `json:"data_quality_note,omitempty" yaml:"data_quality_note,omitempty"`
	PopulatedFields   int             `json:"populated_fields" yaml:"populated_fields"`
	HighestConfidence ConfidenceLevel `json:"highest_confidence" yaml:"highest_confidence"`
	Category          string          `json:"category,omitempty" yaml:"category,omitempty"`
	Rationale         string          `json:"rationale" yaml:"rationale"`
}

// TierAssignment is the strategic-importance classification of a record
type TierAssignment struct {
	RecordRef       string  `json:"record_ref" yaml:"record_ref"`
	Tier            string  `json:"tier" yaml:"tier"`
	ImportanceScore float64 `json:"importance_score" yaml:"importance_score"`
	Category        string  `json:"category" yaml:"category"`
	Rule            string  `json:"rule" yaml:"rule"`
	MatchedTerm     string  `json:"matched_term,omitempty" yaml:"matched_term,omitempty"`
}

// ScreenResult pairs the detection and tier outcomes of one record
type ScreenResult struct {
	RecordRef string          `json:"record_ref" yaml:"record_ref"`
	Detection DetectionResult `json:"detection" yaml:"detection"`
	Tier      TierAssignment  `json:"tier" yaml:"tier"`
	// Error is set when matching failed and the record was degraded to
	// UNCERTAIN
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
