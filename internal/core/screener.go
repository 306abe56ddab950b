// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package core wires the per-record pipeline and drives screening runs.
package core

import (
	"fmt"
	"log/slog"

	"affiliate-scan/internal/aggregate"
	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/logging"
	"affiliate-scan/internal/matcher"
	"affiliate-scan/internal/normalize"
	"affiliate-scan/internal/observability"
	"affiliate-scan/internal/quality"
	"affiliate-scan/internal/tier"
)

// Settings configure every pipeline stage
type Settings struct {
	Schema detector.FieldSchema
	Gate   quality.Settings
	Tiers  tier.Settings
}

// DefaultSettings returns the stage defaults
func DefaultSettings() Settings {
	return Settings{
		Schema: detector.DefaultFieldSchema(),
		Gate:   quality.DefaultSettings(),
		Tiers:  tier.DefaultSettings(),
	}
}

// Validate checks every stage's settings
func (s Settings) Validate() error {
	if err := s.Schema.Validate(); err != nil {
		return err
	}
	if err := s.Gate.Validate(); err != nil {
		return err
	}
	return s.Tiers.Validate()
}

// Screener runs gate, matcher, aggregator and tier classifier over one
// record. A Screener is not safe for concurrent use when built with a
// memoizing normalizer that is not; give each worker its own.
type Screener struct {
	settings Settings
	corpus   *corpus.Corpus
	gate     *quality.Gate
	matcher  *matcher.Matcher
	tiers    *tier.Classifier
	observer *observability.StandardObserver
	logger   *slog.Logger
}

// Option configures a Screener
type Option func(*screenerOptions)

type screenerOptions struct {
	normalize    normalize.Func
	observer     *observability.StandardObserver
	logger       *slog.Logger
	matcherRules []matcher.Rule
}

// WithNormalizer shares one normalization function across all stages
func WithNormalizer(fn normalize.Func) Option {
	return func(o *screenerOptions) {
		o.normalize = fn
	}
}

// WithObserver reports per-record timing
func WithObserver(obs *observability.StandardObserver) Option {
	return func(o *screenerOptions) {
		o.observer = obs
	}
}

// WithLogger sets the logger for degraded records
func WithLogger(l *slog.Logger) Option {
	return func(o *screenerOptions) {
		o.logger = l
	}
}

// WithMatcherRules replaces the matcher's rule chain
func WithMatcherRules(rules []matcher.Rule) Option {
	return func(o *screenerOptions) {
		o.matcherRules = rules
	}
}

// NewScreener validates settings and builds every stage over c
func NewScreener(c *corpus.Corpus, settings Settings, opts ...Option) (*Screener, error) {
	if c == nil {
		return nil, fmt.Errorf("core: corpus is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	o := screenerOptions{normalize: normalize.Normalize, logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	matcherOpts := []matcher.Option{matcher.WithNormalizer(o.normalize)}
	if o.matcherRules != nil {
		matcherOpts = append(matcherOpts, matcher.WithRules(o.matcherRules))
	}

	return &Screener{
		settings: settings,
		corpus:   c,
		gate:     quality.NewGate(c, settings.Schema, settings.Gate, quality.WithNormalizer(o.normalize)),
		matcher:  matcher.New(c, settings.Schema, matcherOpts...),
		tiers:    tier.NewClassifier(c, settings.Schema, settings.Tiers, tier.WithNormalizer(o.normalize)),
		observer: o.observer,
		logger:   o.logger,
	}, nil
}

// GetComponentName implements observability.Observable
func (s *Screener) GetComponentName() string {
	return "screener"
}

// Check returns a malformed-record error when rec violates the adapter
// contract
func (s *Screener) Check(rec detector.Record) error {
	if rec.ID == "" {
		return Malformed("", "empty record id")
	}
	if rec.Fields == nil {
		return Malformed(rec.ID, "nil field map")
	}
	if need := s.settings.Gate.MinIdentityFields; need > 0 {
		if n := len(s.gate.CountPopulated(rec)); n < need {
			return Malformed(rec.ID, fmt.Sprintf("%d populated identity field(s), need %d", n, need))
		}
	}
	return nil
}

// Screen runs the full pipeline on rec. The only error it returns is a
// malformed-record error; failures inside matching degrade the record to
// UNCERTAIN and are reported in ScreenResult.Error.
func (s *Screener) Screen(rec detector.Record) (detector.ScreenResult, error) {
	if err := s.Check(rec); err != nil {
		return detector.ScreenResult{}, err
	}

	var finish func(bool, map[string]interface{})
	if s.observer.Enabled() {
		finish = s.observer.TimeComponent(s, "screen", rec.ID)
	}

	trace := s.debug()

	done := trace("gate", rec.ID)
	assessment := s.gate.Assess(rec)
	done(true, fmt.Sprintf("flag=%s populated=%d", assessment.Flag, assessment.PopulatedFields))

	var signals []detector.SignalResult
	var matchErr error
	if assessment.ShortCircuit() {
		signals = assessment.Positive
	} else {
		done = trace("match", rec.ID)
		signals, matchErr = s.match(rec)
		done(matchErr == nil, fmt.Sprintf("signals=%d", len(signals)))
		if matchErr != nil {
			signals = nil
			assessment.Flag = detector.FlagUncertain
			assessment.Note = "pattern matching failed: " + matchErr.Error()
			s.logger.Warn("record degraded to UNCERTAIN", "record", rec.ID, "error", matchErr)
		}
	}

	detection := aggregate.Aggregate(rec.ID, assessment, signals)

	done = trace("tier", rec.ID)
	assignment := s.tiers.Classify(rec)
	done(true, fmt.Sprintf("tier=%s rule=%s", assignment.Tier, assignment.Rule))

	result := detector.ScreenResult{
		RecordRef: rec.ID,
		Detection: detection,
		Tier:      assignment,
	}
	if matchErr != nil {
		result.Error = matchErr.Error()
	}

	if finish != nil {
		finish(matchErr == nil, map[string]interface{}{
			"flag":       string(result.Detection.DataQualityFlag),
			"matched":    result.Detection.Matched,
			"signals":    len(result.Detection.Signals),
			"confidence": result.Detection.HighestConfidence.String(),
			"tier":       result.Tier.Tier,
		})
	}
	return result, nil
}

// debug returns a step tracer, a no-op unless a DebugObserver is attached
func (s *Screener) debug() func(step, recordRef string) func(bool, string) {
	if s.observer == nil || s.observer.DebugObserver == nil {
		return func(string, string) func(bool, string) {
			return func(bool, string) {}
		}
	}
	d := s.observer.DebugObserver
	return func(step, recordRef string) func(bool, string) {
		return d.StartStep(s.GetComponentName(), step, recordRef)
	}
}

// match runs the matcher, converting a panic into an error
func (s *Screener) match(rec detector.Record) (signals []detector.SignalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matcher panic: %v", r)
		}
	}()
	return s.matcher.Match(rec)
}

// Corpus returns the corpus the screener was built over
func (s *Screener) Corpus() *corpus.Corpus {
	return s.corpus
}
