// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"fmt"
	"strings"
	"time"
)

// Level is the validation rigor. Each level also runs every lower level.
type Level int

const (
	LevelBasic Level = iota
	LevelStandard
	LevelRigorous
	LevelForensic
)

var levelNames = [...]string{"BASIC", "STANDARD", "RIGOROUS", "FORENSIC"}

func (l Level) String() string {
	if l < LevelBasic || l > LevelForensic {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts a level name in any case
func ParseLevel(s string) (Level, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == upper {
			return Level(i), nil
		}
	}
	return LevelBasic, fmt.Errorf("invalid validation level: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// ClaimType sets how much independent evidence a claim needs
type ClaimType string

const (
	ClaimMinor     ClaimType = "minor"
	ClaimStandard  ClaimType = "standard"
	ClaimMajor     ClaimType = "major"
	ClaimBombshell ClaimType = "bombshell"
)

// Source is one origin of the claimed value
type Source struct {
	ID    string   `json:"id" yaml:"id"`
	Value *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	URL   string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// Evidence supports a claim. Items sharing a SourceID are not independent.
type Evidence struct {
	ID            string `json:"id" yaml:"id"`
	SourceID      string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	Kind          string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Registry      string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Authoritative bool   `json:"authoritative,omitempty" yaml:"authoritative,omitempty"`
}

// AuditTrail records how a claim's data was captured
type AuditTrail struct {
	CapturedAt       *time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
	SourceID         string     `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	ExtractionMethod string     `json:"extraction_method,omitempty" yaml:"extraction_method,omitempty"`
	Version          string     `json:"version,omitempty" yaml:"version,omitempty"`
	IntegrityHash    string     `json:"integrity_hash,omitempty" yaml:"integrity_hash,omitempty"`
}

// Provenance identifies the captured artifact behind a claim. Content, when
// present, is hashed and compared with IntegrityHash.
type Provenance struct {
	SourceURL     string     `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	CapturedAt    *time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty"`
	CaptureMethod string     `json:"capture_method,omitempty" yaml:"capture_method,omitempty"`
	IntegrityHash string     `json:"integrity_hash,omitempty" yaml:"integrity_hash,omitempty"`
	Content       string     `json:"content,omitempty" yaml:"content,omitempty"`
}

// Claim is a structured, sourced assertion. Value holds arbitrary named
// metrics; nested maps are addressed with dotted paths.
type Claim struct {
	ID         string         `json:"id" yaml:"id"`
	ClaimType  ClaimType      `json:"claim_type" yaml:"claim_type"`
	Value      map[string]any `json:"value" yaml:"value"`
	Sources    []Source       `json:"sources,omitempty" yaml:"sources,omitempty"`
	Evidence   []Evidence     `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Audit      *AuditTrail    `json:"audit,omitempty" yaml:"audit,omitempty"`
	Provenance *Provenance    `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// IssueSeverity represents the severity level of a validation issue
type IssueSeverity int

const (
	// SeverityInfo notes a check that could not be assessed
	SeverityInfo IssueSeverity = iota
	// SeverityWarning flags misconfiguration and soft findings
	SeverityWarning
	// SeverityError fails the claim
	SeverityError
	// SeverityCritical fails the claim and indicates corrupted input
	SeverityCritical
)

// String returns the string representation of the severity
func (s IssueSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s IssueSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue categories
const (
	CategoryNullCheck        = "null_check"
	CategoryRange            = "range"
	CategoryNegativeCount    = "negative_count"
	CategoryTotals           = "totals"
	CategoryComplement       = "complementary_rates"
	CategoryOrdering         = "ordering"
	CategoryParentChild      = "parent_child"
	CategoryCrossSource      = "cross_source"
	CategoryEvidence         = "evidence_sufficiency"
	CategoryAuditTrail       = "audit_trail"
	CategoryProvenance       = "provenance"
	CategoryMisconfiguration = "misconfiguration"
)

// Issue is one finding against a claim
type Issue struct {
	Severity    IssueSeverity `json:"severity" yaml:"severity"`
	Category    string        `json:"category" yaml:"category"`
	Check       string        `json:"check" yaml:"check"`
	Field       string        `json:"field,omitempty" yaml:"field,omitempty"`
	Description string        `json:"description" yaml:"description"`
	Suggestion  string        `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// SubScores are the four independently graded dimensions, each in [0,1]
type SubScores struct {
	SourceAgreement     float64 `json:"source_agreement" yaml:"source_agreement"`
	EvidenceQuality     float64 `json:"evidence_quality" yaml:"evidence_quality"`
	TemporalConsistency float64 `json:"temporal_consistency" yaml:"temporal_consistency"`
	LogicalConsistency  float64 `json:"logical_consistency" yaml:"logical_consistency"`
}

// ValidationResult is the verdict on one claim
type ValidationResult struct {
	ClaimID         string    `json:"claim_id" yaml:"claim_id"`
	Level           Level     `json:"level" yaml:"level"`
	Valid           bool      `json:"valid" yaml:"valid"`
	Issues          []Issue   `json:"issues" yaml:"issues"`
	ChecksPerformed []string  `json:"checks_performed" yaml:"checks_performed"`
	ConfidenceScore float64   `json:"confidence_score" yaml:"confidence_score"`
	SubScores       SubScores `json:"sub_scores" yaml:"sub_scores"`
}

// HasCategory reports whether any issue of the given category was raised
func (r ValidationResult) HasCategory(category string) bool {
	for _, issue := range r.Issues {
		if issue.Category == category {
			return true
		}
	}
	return false
}
