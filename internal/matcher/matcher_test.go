// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
)

func newTestMatcher(t *testing.T, opts ...Option) *Matcher {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	return New(c, detector.DefaultFieldSchema(), opts...)
}

func match(t *testing.T, m *Matcher, fields map[string]string) []detector.SignalResult {
	t.Helper()
	signals, err := m.Match(detector.Record{ID: "r", Fields: fields})
	require.NoError(t, err)
	return signals
}

func TestRuleOrder(t *testing.T) {
	m := newTestMatcher(t)
	assert.Equal(t, []string{
		RuleExclusion,
		RuleExcludedJurisdiction,
		RuleTargetJurisdiction,
		RuleTargetEntity,
	}, m.Rules())
}

func TestMatchSignals(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		name       string
		fields     map[string]string
		types      []detector.SignalType
		confidence []detector.ConfidenceLevel
	}{
		{
			name:       "country code",
			fields:     map[string]string{"country_code": "CN"},
			types:      []detector.SignalType{detector.SignalCountry},
			confidence: []detector.ConfidenceLevel{detector.ConfidenceHigh},
		},
		{
			name:       "country inside address",
			fields:     map[string]string{"country": "Shenzhen, Guangdong, China"},
			types:      []detector.SignalType{detector.SignalCountry},
			confidence: []detector.ConfidenceLevel{detector.ConfidenceHigh},
		},
		{
			name:   "excluded jurisdiction voids field",
			fields: map[string]string{"country": "Hong Kong, China"},
		},
		{
			name:   "jurisdiction never read from free text",
			fields: map[string]string{"description": "Shipping services to China", "name": "Acme Logistics"},
		},
		{
			name:   "code inside other word",
			fields: map[string]string{"country": "Cnty Services"},
		},
		{
			name:       "entity in name field",
			fields:     map[string]string{"name": "ZTE Corporation"},
			types:      []detector.SignalType{detector.SignalEntityName},
			confidence: []detector.ConfidenceLevel{detector.ConfidenceHigh},
		},
		{
			name:       "entity in description",
			fields:     map[string]string{"name": "Acme", "description": "Replacement of Hikvision cameras"},
			types:      []detector.SignalType{detector.SignalEntityName},
			confidence: []detector.ConfidenceLevel{detector.ConfidenceMedium},
		},
		{
			name:   "entity substring inside word",
			fields: map[string]string{"name": "Aztec Building Supply"},
		},
		{
			name:   "exclusion precedence",
			fields: map[string]string{"name": "China Mobile Home Park LLC"},
		},
		{
			name:   "obfuscated exclusion still voids",
			fields: map[string]string{"name": "China Mobile H-o-m-e Park"},
		},
		{
			name:   "museum name",
			fields: map[string]string{"name": "Museum of Chinese in America", "description": "Exhibit on China"},
		},
		{
			name: "country and entity in order",
			fields: map[string]string{
				"description":  "Network switches from Huawei",
				"name":         "Huawei Technologies Co Ltd",
				"country_code": "CHN",
			},
			types: []detector.SignalType{
				detector.SignalCountry,
				detector.SignalEntityName,
				detector.SignalEntityName,
			},
			confidence: []detector.ConfidenceLevel{
				detector.ConfidenceHigh,
				detector.ConfidenceHigh,
				detector.ConfidenceMedium,
			},
		},
		{
			name:   "placeholders",
			fields: map[string]string{"name": "N/A", "country": "unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := match(t, m, tt.fields)
			require.Len(t, signals, len(tt.types))
			for i, s := range signals {
				assert.Equal(t, tt.types[i], s.Type, i)
				assert.Equal(t, tt.confidence[i], s.Confidence, i)
				assert.NotEmpty(t, s.Rationale)
				assert.Contains(t, s.Rationale, s.Field)
				assert.Contains(t, s.Rationale, s.MatchedValue)
			}
		})
	}
}

func TestProductOriginBecomesSourcedProduct(t *testing.T) {
	m := newTestMatcher(t)
	signals := match(t, m, map[string]string{
		"jurisdiction_code": "CN",
		"description":       "Made in China, assembled in USA",
		"name":              "Acme Corp (USA)",
	})

	require.Len(t, signals, 1)
	s := signals[0]
	assert.Equal(t, detector.SignalSourcedProduct, s.Type)
	assert.Equal(t, detector.ConfidenceLow, s.Confidence)
	assert.Equal(t, "jurisdiction_code", s.Field)
	assert.Equal(t, RuleTargetJurisdiction, s.Rule)
	assert.Contains(t, s.Rationale, "made in china")
}

func TestSpacedEntityUsesCollapsedFallback(t *testing.T) {
	m := newTestMatcher(t)
	signals := match(t, m, map[string]string{"name": "H u a w e i Technologies"})

	require.Len(t, signals, 1)
	s := signals[0]
	assert.Equal(t, detector.SignalEntityName, s.Type)
	assert.Equal(t, detector.ConfidenceHigh, s.Confidence)
	assert.Equal(t, detector.MatchCollapsed, s.MatchMode)
	assert.Equal(t, "Huawei Technologies", s.MatchedValue)
}

func TestHomoglyphEntity(t *testing.T) {
	m := newTestMatcher(t)
	// Latin Z followed by Cyrillic TE and IE
	signals := match(t, m, map[string]string{"name": "Z\u0422\u0415 Corp"})
	require.Len(t, signals, 1)
	assert.Equal(t, "ZTE", signals[0].MatchedValue)
}

func TestExcludedJurisdictionWithEntityName(t *testing.T) {
	m := newTestMatcher(t)
	signals := match(t, m, map[string]string{
		"country_code": "HK",
		"name":         "Foxconn Hong Kong Ltd",
	})
	assert.Empty(t, signals)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := newTestMatcher(t)
	fields := map[string]string{
		"country_code": "CN",
		"name":         "Dahua Technology",
		"vendor_name":  "Hikvision",
		"description":  "Cameras from Z-T-E",
	}
	first := match(t, m, fields)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, match(t, m, fields))
	}
}

func TestNilFields(t *testing.T) {
	m := newTestMatcher(t)
	_, err := m.Match(detector.Record{ID: "x"})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestCustomRules(t *testing.T) {
	rules := []Rule{{
		Name:  "always_void",
		Roles: detector.Roles(),
		Eval: func(in *Input) (Verdict, detector.SignalResult) {
			return Void, detector.SignalResult{}
		},
	}}
	rules = append(rules, DefaultRules()...)
	m := newTestMatcher(t, WithRules(rules))

	assert.Empty(t, match(t, m, map[string]string{"country_code": "CN", "name": "Huawei"}))
	assert.Equal(t, "always_void", m.Rules()[0])
}
