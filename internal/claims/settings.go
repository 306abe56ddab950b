// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package claims

import (
	"fmt"
	"math"
)

// Weights combine the four sub-scores into the confidence score
type Weights struct {
	SourceAgreement float64 `yaml:"source_agreement" json:"source_agreement"`
	EvidenceQuality float64 `yaml:"evidence_quality" json:"evidence_quality"`
	Temporal        float64 `yaml:"temporal" json:"temporal"`
	Logical         float64 `yaml:"logical" json:"logical"`
}

// YearWindow bounds plausible year values
type YearWindow struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// TotalRule states that Total equals the sum of Parts
type TotalRule struct {
	Total string   `yaml:"total" json:"total"`
	Parts []string `yaml:"parts" json:"parts"`
}

// ComplementRule states that two rates sum to one (or 100 for percentages)
type ComplementRule struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
}

// OrderingRule states that Start is not after End
type OrderingRule struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// ParentChildRule states that Child does not exceed Parent
type ParentChildRule struct {
	Parent string `yaml:"parent" json:"parent"`
	Child  string `yaml:"child" json:"child"`
}

// Settings configure the validator
type Settings struct {
	Level Level `yaml:"level" json:"level"`

	// Tolerance is relative to the expected value, with a floor of one unit
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`

	// DeviationThreshold is the largest accepted relative deviation of a
	// source value from the mean of all source values.
	DeviationThreshold float64 `yaml:"deviation_threshold" json:"deviation_threshold"`

	EvidenceMinimums        map[ClaimType]int `yaml:"evidence_minimums" json:"evidence_minimums"`
	AuthoritativeRegistries []string          `yaml:"authoritative_registries" json:"authoritative_registries"`
	Weights                 Weights           `yaml:"weights" json:"weights"`
	YearWindow              YearWindow        `yaml:"year_window" json:"year_window"`

	RequiredFields []string          `yaml:"required_fields" json:"required_fields"`
	Totals         []TotalRule       `yaml:"totals" json:"totals"`
	Complements    []ComplementRule  `yaml:"complements" json:"complements"`
	Orderings      []OrderingRule    `yaml:"orderings" json:"orderings"`
	ParentChild    []ParentChildRule `yaml:"parent_child" json:"parent_child"`
}

// DefaultSettings returns the validator defaults
func DefaultSettings() Settings {
	return Settings{
		Level:              LevelStandard,
		Tolerance:          0.01,
		DeviationThreshold: 0.10,
		EvidenceMinimums: map[ClaimType]int{
			ClaimMinor:     1,
			ClaimStandard:  2,
			ClaimMajor:     3,
			ClaimBombshell: 4,
		},
		AuthoritativeRegistries: []string{"sam.gov", "fpds", "usaspending", "opencorporates", "sec edgar"},
		Weights: Weights{
			SourceAgreement: 0.3,
			EvidenceQuality: 0.3,
			Temporal:        0.2,
			Logical:         0.2,
		},
		YearWindow: YearWindow{Min: 1990, Max: 2035},
	}
}

// Validate checks the settings for impossible values
func (s Settings) Validate() error {
	if s.Level < LevelBasic || s.Level > LevelForensic {
		return fmt.Errorf("claims: invalid level %d", int(s.Level))
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("claims: tolerance must be >= 0, got %g", s.Tolerance)
	}
	if s.DeviationThreshold <= 0 {
		return fmt.Errorf("claims: deviation_threshold must be > 0, got %g", s.DeviationThreshold)
	}
	for t, n := range s.EvidenceMinimums {
		if n < 1 {
			return fmt.Errorf("claims: evidence minimum for %s must be >= 1, got %d", t, n)
		}
	}
	w := s.Weights
	for name, v := range map[string]float64{
		"source_agreement": w.SourceAgreement,
		"evidence_quality": w.EvidenceQuality,
		"temporal":         w.Temporal,
		"logical":          w.Logical,
	} {
		if v < 0 {
			return fmt.Errorf("claims: weight %s must be >= 0, got %g", name, v)
		}
	}
	if sum := w.SourceAgreement + w.EvidenceQuality + w.Temporal + w.Logical; math.Abs(sum-1) > 0.001 {
		return fmt.Errorf("claims: weights must sum to 1, got %.3f", sum)
	}
	if s.YearWindow.Min > s.YearWindow.Max {
		return fmt.Errorf("claims: year_window min %d is after max %d", s.YearWindow.Min, s.YearWindow.Max)
	}
	for i, r := range s.Totals {
		if r.Total == "" || len(r.Parts) == 0 {
			return fmt.Errorf("claims: totals[%d] needs a total and at least one part", i)
		}
	}
	return nil
}
