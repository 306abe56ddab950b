// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package claims audits aggregated claims and metrics at escalating levels
// of rigor before publication.
package claims

import (
	"fmt"
	"math"
	"sync"
	"time"

	"affiliate-scan/internal/observability"
)

// Dimension is one of the four graded aspects of a claim
type Dimension int

const (
	DimensionSourceAgreement Dimension = iota
	DimensionEvidenceQuality
	DimensionTemporal
	DimensionLogical
	dimensionCount
)

// neutralScore is the sub-score of a dimension no check assessed
const neutralScore = 0.5

// check is one tagged entry in the validation chain. run reports whether
// the check applied to the claim.
type check struct {
	level Level
	name  string
	run   func(r *run) bool
}

// chain lists every check in execution order. A validation at level L runs
// each entry whose level is at most L.
var chain = []check{
	{LevelBasic, "basic.required_fields", checkRequired},
	{LevelBasic, "basic.semantic_ranges", checkRanges},
	{LevelBasic, "basic.non_negative_counts", checkCounts},
	{LevelStandard, "standard.totals", checkTotals},
	{LevelStandard, "standard.complementary_rates", checkComplements},
	{LevelStandard, "standard.ordering", checkOrderings},
	{LevelStandard, "standard.parent_child", checkParentChild},
	{LevelRigorous, "rigorous.cross_source", checkCrossSource},
	{LevelRigorous, "rigorous.evidence_sufficiency", checkEvidence},
	{LevelForensic, "forensic.audit_trail", checkAuditTrail},
	{LevelForensic, "forensic.provenance", checkProvenance},
}

// Checks returns the names of the checks run at level, in order
func Checks(level Level) []string {
	var names []string
	for _, c := range chain {
		if c.level <= level {
			names = append(names, c.name)
		}
	}
	return names
}

// run carries the state of validating one claim
type run struct {
	claim    *Claim
	settings *Settings
	now      time.Time
	check    string
	issues   []Issue
	passed   [dimensionCount]float64
	total    [dimensionCount]float64
}

func (r *run) grade(d Dimension, ok bool) {
	r.total[d]++
	if ok {
		r.passed[d]++
	}
}

func (r *run) gradePartial(d Dimension, passed, total float64) {
	r.passed[d] += passed
	r.total[d] += total
}

func (r *run) report(sev IssueSeverity, category, field, suggestion, format string, args ...any) {
	r.issues = append(r.issues, Issue{
		Severity:    sev,
		Category:    category,
		Check:       r.check,
		Field:       field,
		Description: fmt.Sprintf(format, args...),
		Suggestion:  suggestion,
	})
}

func (r *run) subScore(d Dimension) float64 {
	if r.total[d] == 0 {
		return neutralScore
	}
	return r.passed[d] / r.total[d]
}

// Validator validates claims and accumulates run statistics. It is safe
// for concurrent use.
type Validator struct {
	settings Settings
	now      func() time.Time
	observer *observability.StandardObserver

	mu    sync.Mutex
	stats statsAccumulator
}

// Option configures a Validator
type Option func(*Validator)

// WithClock fixes the time used for future-timestamp checks
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// WithObserver reports per-claim timing to an observer
func WithObserver(o *observability.StandardObserver) Option {
	return func(v *Validator) {
		v.observer = o
	}
}

// NewValidator checks settings and returns a validator
func NewValidator(settings Settings, opts ...Option) (*Validator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	v := &Validator{
		settings: settings,
		now:      time.Now,
		stats:    newStatsAccumulator(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Level is the configured default level
func (v *Validator) Level() Level {
	return v.settings.Level
}

// Validate runs the configured level against claim
func (v *Validator) Validate(claim Claim) ValidationResult {
	return v.ValidateAt(claim, v.settings.Level)
}

// ValidateAt runs every check up to and including level. Rule failures are
// returned as issues; the claim itself is never modified.
func (v *Validator) ValidateAt(claim Claim, level Level) ValidationResult {
	var finish func(bool, map[string]interface{})
	if v.observer != nil {
		finish = v.observer.StartTiming("claims", "validate", claim.ID)
	}

	r := &run{claim: &claim, settings: &v.settings, now: v.now()}
	performed := []string{}
	for _, c := range chain {
		if c.level > level {
			break
		}
		r.check = c.name
		if c.run(r) {
			performed = append(performed, c.name)
		}
	}

	result := ValidationResult{
		ClaimID:         claim.ID,
		Level:           level,
		Valid:           true,
		Issues:          r.issues,
		ChecksPerformed: performed,
		SubScores: SubScores{
			SourceAgreement:     r.subScore(DimensionSourceAgreement),
			EvidenceQuality:     r.subScore(DimensionEvidenceQuality),
			TemporalConsistency: r.subScore(DimensionTemporal),
			LogicalConsistency:  r.subScore(DimensionLogical),
		},
	}
	if result.Issues == nil {
		result.Issues = []Issue{}
	}
	for _, issue := range result.Issues {
		if issue.Severity >= SeverityError {
			result.Valid = false
			break
		}
	}

	w := v.settings.Weights
	score := w.SourceAgreement*result.SubScores.SourceAgreement +
		w.EvidenceQuality*result.SubScores.EvidenceQuality +
		w.Temporal*result.SubScores.TemporalConsistency +
		w.Logical*result.SubScores.LogicalConsistency
	result.ConfidenceScore = math.Round(score*1e4) / 1e4

	v.mu.Lock()
	v.stats.add(result)
	v.mu.Unlock()

	if finish != nil {
		finish(result.Valid, map[string]interface{}{
			"level":            level.String(),
			"issues":           len(result.Issues),
			"confidence_score": result.ConfidenceScore,
		})
	}
	return result
}

// Stats returns a snapshot of the run statistics
func (v *Validator) Stats() RunStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats.snapshot()
}

// Reset clears the run statistics
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = newStatsAccumulator()
}
