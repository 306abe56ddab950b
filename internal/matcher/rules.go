// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"fmt"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/normalize"
)

// Rule names, in default evaluation order
const (
	RuleExclusion            = "exclusion"
	RuleExcludedJurisdiction = "excluded_jurisdiction"
	RuleTargetJurisdiction   = "target_jurisdiction"
	RuleTargetEntity         = "target_entity"
)

// Verdict is the outcome of one rule on one field
type Verdict int

const (
	// Continue passes the field to the next rule
	Continue Verdict = iota
	// Void stops evaluation of the field without a signal
	Void
	// Emit stops evaluation of the field with a signal
	Emit
)

// OriginMention records a product-origin phrase found in free text
type OriginMention struct {
	Field  string
	Phrase corpus.OriginPhrase
}

// Input is the field under evaluation plus record-level context
type Input struct {
	Field  string
	Role   detector.FieldRole
	Raw    string
	Form   normalize.Form
	Origin *OriginMention
	corpus *corpus.Corpus
}

// Corpus returns the corpus the field is evaluated against
func (in *Input) Corpus() *corpus.Corpus {
	return in.corpus
}

// Rule is one tagged predicate in the per-field chain
type Rule struct {
	Name  string
	Roles []detector.FieldRole
	Eval  func(in *Input) (Verdict, detector.SignalResult)
}

// AppliesTo reports whether the rule runs on fields of the given role
func (r Rule) AppliesTo(role detector.FieldRole) bool {
	for _, candidate := range r.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// DefaultRules returns the chain in its fixed priority order: exclusions
// void a field before any positive rule can see it, and jurisdiction
// identifiers are only ever read from jurisdiction fields.
func DefaultRules() []Rule {
	all := detector.Roles()
	return []Rule{
		{Name: RuleExclusion, Roles: all, Eval: evalExclusion},
		{Name: RuleExcludedJurisdiction, Roles: []detector.FieldRole{detector.RoleJurisdiction}, Eval: evalExcludedJurisdiction},
		{Name: RuleTargetJurisdiction, Roles: []detector.FieldRole{detector.RoleJurisdiction}, Eval: evalTargetJurisdiction},
		{Name: RuleTargetEntity, Roles: []detector.FieldRole{detector.RoleName, detector.RoleDescription}, Eval: evalTargetEntity},
	}
}

func evalExclusion(in *Input) (Verdict, detector.SignalResult) {
	for _, term := range in.corpus.Terms(corpus.Exclusions) {
		if in.Form.Match(term.Form) != detector.MatchNone {
			return Void, detector.SignalResult{}
		}
	}
	return Continue, detector.SignalResult{}
}

func evalExcludedJurisdiction(in *Input) (Verdict, detector.SignalResult) {
	for _, term := range in.corpus.Terms(corpus.ExcludedJurisdictions) {
		if in.Form.MatchIdentifier(term.Form) != detector.MatchNone {
			return Void, detector.SignalResult{}
		}
	}
	return Continue, detector.SignalResult{}
}

func evalTargetJurisdiction(in *Input) (Verdict, detector.SignalResult) {
	for _, term := range in.corpus.Terms(corpus.TargetJurisdictions) {
		mode := in.Form.MatchIdentifier(term.Form)
		if mode == detector.MatchNone {
			continue
		}

		signal := detector.SignalResult{
			Type:         detector.SignalCountry,
			Field:        in.Field,
			Role:         in.Role,
			MatchedValue: term.Raw,
			Confidence:   detector.ConfidenceHigh,
			MatchMode:    mode,
			Rationale: fmt.Sprintf("%s field %q value %q matches target jurisdiction identifier %q (%s)",
				in.Role, in.Field, in.Raw, term.Raw, mode),
		}
		if in.Origin != nil {
			signal.Type = detector.SignalSourcedProduct
			signal.Confidence = detector.ConfidenceLow
			signal.Rationale = fmt.Sprintf("%s field %q value %q matches target jurisdiction identifier %q (%s) "+
				"but field %q states product origin %q; treated as sourced product",
				in.Role, in.Field, in.Raw, term.Raw, mode,
				in.Origin.Field, in.Origin.Phrase.Form.Boundary)
		}
		return Emit, signal
	}
	return Continue, detector.SignalResult{}
}

func evalTargetEntity(in *Input) (Verdict, detector.SignalResult) {
	for _, term := range in.corpus.Terms(corpus.TargetEntities) {
		mode := in.Form.Match(term.Form)
		if mode == detector.MatchNone {
			continue
		}

		confidence := detector.ConfidenceHigh
		kind := "curated entity"
		if in.Role == detector.RoleDescription {
			confidence = detector.ConfidenceMedium
			kind = "incidental mention of entity"
		}
		return Emit, detector.SignalResult{
			Type:         detector.SignalEntityName,
			Field:        in.Field,
			Role:         in.Role,
			MatchedValue: term.Raw,
			Confidence:   confidence,
			MatchMode:    mode,
			Rationale: fmt.Sprintf("%s field %q value %q matches %s %q (%s)",
				in.Role, in.Field, in.Raw, kind, term.Raw, mode),
		}
	}
	return Continue, detector.SignalResult{}
}
