// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package quality implements the cheap pre-classification of a record's
// completeness and certainty that runs before pattern matching.
package quality

import (
	"fmt"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/normalize"
)

// RuleConfirmedTarget is the rule name carried on the gate's own signal
const RuleConfirmedTarget = "gate.confirmed_target"

// Settings tune the gate
type Settings struct {
	// LowDataThreshold is the populated identity field count below which a
	// record is LOW_DATA.
	LowDataThreshold int `yaml:"low_data_threshold" json:"low_data_threshold"`

	// MinIdentityFields is the adapter contract: records with fewer
	// populated identity fields are malformed and skipped.
	MinIdentityFields int `yaml:"min_identity_fields" json:"min_identity_fields"`

	// Placeholders are values that count as empty
	Placeholders []string `yaml:"placeholders" json:"placeholders"`
}

// DefaultSettings returns the gate defaults
func DefaultSettings() Settings {
	return Settings{
		LowDataThreshold:  2,
		MinIdentityFields: 0,
		Placeholders:      []string{"n/a", "na", "none", "null", "nil", "unknown", "not available", "tbd", "-", "0"},
	}
}

// Validate checks the settings for impossible values
func (s Settings) Validate() error {
	if s.LowDataThreshold < 0 {
		return fmt.Errorf("gate: low_data_threshold must be >= 0, got %d", s.LowDataThreshold)
	}
	if s.MinIdentityFields < 0 {
		return fmt.Errorf("gate: min_identity_fields must be >= 0, got %d", s.MinIdentityFields)
	}
	return nil
}

// Assessment is the gate verdict on one record
type Assessment struct {
	Flag            detector.QualityFlag
	PopulatedFields int
	Populated       []string
	// Positive holds trivially visible signals; non-empty only for
	// CONFIRMED_TARGET.
	Positive []detector.SignalResult
	// Negative explains a CONFIRMED_NON_TARGET verdict
	Negative []string
	Note     string
}

// ShortCircuit reports whether pattern matching should be skipped
func (a Assessment) ShortCircuit() bool {
	return a.Flag.IsConfirmed()
}

// Gate classifies records before matching
type Gate struct {
	corpus       *corpus.Corpus
	schema       detector.FieldSchema
	settings     Settings
	placeholders map[string]bool
	normalize    normalize.Func
}

// Option configures a Gate
type Option func(*Gate)

// WithNormalizer replaces the normalization function, e.g. with a memo
func WithNormalizer(fn normalize.Func) Option {
	return func(g *Gate) {
		g.normalize = fn
	}
}

// NewGate builds a gate over an immutable corpus
func NewGate(c *corpus.Corpus, schema detector.FieldSchema, settings Settings, opts ...Option) *Gate {
	g := &Gate{
		corpus:       c,
		schema:       schema,
		settings:     settings,
		placeholders: make(map[string]bool, len(settings.Placeholders)),
		normalize:    normalize.Normalize,
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, p := range settings.Placeholders {
		// compared on the boundary form, so "N/A" and "n a" agree
		g.placeholders[normalize.Normalize(p).Boundary] = true
	}
	return g
}

// Populated reports whether a raw field value carries data
func (g *Gate) Populated(raw string) bool {
	form := g.normalize(raw)
	if form.IsEmpty() {
		return false
	}
	return !g.placeholders[form.Boundary]
}

// CountPopulated returns the populated identity fields of rec in schema order
func (g *Gate) CountPopulated(rec detector.Record) []string {
	var populated []string
	for _, field := range g.schema.IdentityFields() {
		if g.Populated(rec.Value(field)) {
			populated = append(populated, field)
		}
	}
	return populated
}

// Assess classifies rec. Certainty verdicts take precedence over
// completeness verdicts: a record whose only populated field is an excluded
// jurisdiction code is CONFIRMED_NON_TARGET, not LOW_DATA.
func (g *Gate) Assess(rec detector.Record) Assessment {
	populated := g.CountPopulated(rec)
	a := Assessment{
		PopulatedFields: len(populated),
		Populated:       populated,
	}

	if reason, ok := g.excludedJurisdiction(rec); ok {
		a.Flag = detector.FlagConfirmedNonTarget
		a.Negative = []string{reason}
		a.Note = reason
		return a
	}

	if signal, ok := g.confirmedTarget(rec); ok {
		a.Flag = detector.FlagConfirmedTarget
		a.Positive = []detector.SignalResult{signal}
		a.Note = "jurisdiction field unambiguously names the target jurisdiction"
		return a
	}

	switch {
	case a.PopulatedFields == 0:
		a.Flag = detector.FlagNoData
		a.Note = "no populated identity fields"
	case a.PopulatedFields < g.settings.LowDataThreshold:
		a.Flag = detector.FlagLowData
		a.Note = fmt.Sprintf("%d populated identity field(s), below threshold %d",
			a.PopulatedFields, g.settings.LowDataThreshold)
	default:
		a.Flag = detector.FlagUncertain
	}
	return a
}

// excludedJurisdiction finds a jurisdiction field naming an excluded
// related jurisdiction.
func (g *Gate) excludedJurisdiction(rec detector.Record) (string, bool) {
	for _, field := range g.schema.Jurisdiction {
		raw := rec.Value(field)
		form := g.normalize(raw)
		if form.IsEmpty() {
			continue
		}
		for _, term := range g.corpus.Terms(corpus.ExcludedJurisdictions) {
			if mode := form.MatchIdentifier(term.Form); mode != detector.MatchNone {
				return fmt.Sprintf("jurisdiction field %q value %q names excluded jurisdiction %q (%s)",
					field, raw, term.Raw, mode), true
			}
		}
	}
	return "", false
}

// confirmedTarget finds a jurisdiction field that equals a target
// identifier outright, provided nothing in the record points to mere
// product origin and the field is not on the exclusion list.
func (g *Gate) confirmedTarget(rec detector.Record) (detector.SignalResult, bool) {
	for _, field := range g.schema.Description {
		if _, ok := g.corpus.ProductOrigin(g.normalize(rec.Value(field))); ok {
			return detector.SignalResult{}, false
		}
	}

	for _, field := range g.schema.Jurisdiction {
		raw := rec.Value(field)
		form := g.normalize(raw)
		if form.IsEmpty() || g.excluded(form) {
			continue
		}
		for _, term := range g.corpus.Terms(corpus.TargetJurisdictions) {
			mode := form.Equal(term.Form)
			if mode == detector.MatchNone {
				continue
			}
			return detector.SignalResult{
				Type:         detector.SignalCountry,
				Field:        field,
				Role:         detector.RoleJurisdiction,
				MatchedValue: term.Raw,
				Confidence:   detector.ConfidenceHigh,
				Rule:         RuleConfirmedTarget,
				MatchMode:    mode,
				Rationale: fmt.Sprintf("jurisdiction field %q value %q equals target jurisdiction identifier %q (%s)",
					field, raw, term.Raw, mode),
			}, true
		}
	}
	return detector.SignalResult{}, false
}

func (g *Gate) excluded(form normalize.Form) bool {
	for _, term := range g.corpus.Terms(corpus.Exclusions) {
		if form.Match(term.Form) != detector.MatchNone {
			return true
		}
	}
	return false
}
