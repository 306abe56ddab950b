// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package matcher extracts field-scoped affiliation signals from a record
// using the normalizer and the curated corpora.
package matcher

import (
	"errors"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/normalize"
)

// ErrNoFields is returned for a record without a field map
var ErrNoFields = errors.New("record has no fields")

// Matcher evaluates the rule chain against every identity field of a
// record. It holds no mutable state and is safe for concurrent use when its
// normalizer is.
type Matcher struct {
	corpus    *corpus.Corpus
	schema    detector.FieldSchema
	rules     []Rule
	normalize normalize.Func
}

// Option configures a Matcher
type Option func(*Matcher)

// WithNormalizer replaces the normalization function, e.g. with a memo
func WithNormalizer(fn normalize.Func) Option {
	return func(m *Matcher) {
		m.normalize = fn
	}
}

// WithRules replaces the rule chain
func WithRules(rules []Rule) Option {
	return func(m *Matcher) {
		m.rules = rules
	}
}

// New creates a matcher over an immutable corpus
func New(c *corpus.Corpus, schema detector.FieldSchema, opts ...Option) *Matcher {
	m := &Matcher{
		corpus:    c,
		schema:    schema,
		rules:     DefaultRules(),
		normalize: normalize.Normalize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the rule names in evaluation order
func (m *Matcher) Rules() []string {
	names := make([]string, len(m.rules))
	for i, r := range m.rules {
		names[i] = r.Name
	}
	return names
}

// Match returns the signals found in rec. Fields are visited jurisdiction
// fields first, then name fields, then description fields, each in schema
// order, so the output order is deterministic.
func (m *Matcher) Match(rec detector.Record) ([]detector.SignalResult, error) {
	if rec.Fields == nil {
		return nil, ErrNoFields
	}

	in := &Input{corpus: m.corpus}
	for _, field := range m.schema.Description {
		if form := m.normalize(rec.Value(field)); !form.IsEmpty() {
			if origin, ok := m.corpus.ProductOrigin(form); ok {
				in.Origin = &OriginMention{Field: field, Phrase: origin}
				break
			}
		}
	}

	signals := []detector.SignalResult{}
	for _, role := range detector.Roles() {
		for _, field := range m.schema.Fields(role) {
			raw := rec.Value(field)
			form := m.normalize(raw)
			if form.IsEmpty() {
				continue
			}
			in.Field, in.Role, in.Raw, in.Form = field, role, raw, form

			for _, rule := range m.rules {
				if !rule.AppliesTo(role) {
					continue
				}
				verdict, signal := rule.Eval(in)
				if verdict == Emit {
					signal.Rule = rule.Name
					signals = append(signals, signal)
				}
				if verdict != Continue {
					break
				}
			}
		}
	}
	return signals, nil
}
