// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/matcher"
	"affiliate-scan/internal/observability"
	"affiliate-scan/internal/tier"
)

func newTestScreener(t *testing.T, opts ...Option) *Screener {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	s, err := NewScreener(c, DefaultSettings(), opts...)
	require.NoError(t, err)
	return s
}

func screen(t *testing.T, s *Screener, id string, fields map[string]string) detector.ScreenResult {
	t.Helper()
	res, err := s.Screen(detector.Record{ID: id, Fields: fields})
	require.NoError(t, err)
	return res
}

func TestScreenExcludedJurisdictionScenario(t *testing.T) {
	s := newTestScreener(t)
	res := screen(t, s, "foxconn", map[string]string{
		"country_code": "HK",
		"name":         "Foxconn Hong Kong Ltd",
		"description":  "Electronics assembly, parts from Huawei",
	})

	d := res.Detection
	assert.False(t, d.Matched)
	assert.Empty(t, d.Signals)
	assert.Equal(t, detector.FlagConfirmedNonTarget, d.DataQualityFlag)
	assert.Equal(t, detector.ConfidenceNone, d.HighestConfidence)
	assert.NotEmpty(t, d.Rationale)
}

func TestScreenSourcedProductScenario(t *testing.T) {
	s := newTestScreener(t)
	res := screen(t, s, "widget", map[string]string{
		"jurisdiction_code": "CN",
		"name":              "Acme Corp (USA)",
		"description":       "Made in China, assembled in USA",
	})

	d := res.Detection
	assert.True(t, d.Matched)
	assert.Equal(t, detector.FlagUncertain, d.DataQualityFlag)
	assert.Equal(t, detector.ConfidenceLow, d.HighestConfidence)
	assert.Equal(t, "sourced_product", d.Category)
}

func TestScreenSourcedProductAfterFillerWords(t *testing.T) {
	s := newTestScreener(t)
	for _, description := range []string{
		"Made in the PRC, assembled in USA",
		"Made in the People's Republic of China",
	} {
		res := screen(t, s, "widget", map[string]string{
			"jurisdiction_code": "CN",
			"name":              "Acme Corp (USA)",
			"description":       description,
		})

		d := res.Detection
		assert.Equal(t, detector.FlagUncertain, d.DataQualityFlag, description)
		assert.True(t, d.Matched, description)
		assert.Equal(t, detector.ConfidenceLow, d.HighestConfidence, description)
		assert.Equal(t, "sourced_product", d.Category, description)
	}
}

func TestScreenSpacedEntityScenario(t *testing.T) {
	s := newTestScreener(t)
	res := screen(t, s, "spaced", map[string]string{
		"name":    "H u a w e i Technologies",
		"country": "United States",
	})

	d := res.Detection
	assert.True(t, d.Matched)
	assert.Equal(t, detector.ConfidenceHigh, d.HighestConfidence)
	require.Len(t, d.Signals, 1)
	assert.Equal(t, detector.SignalEntityName, d.Signals[0].Type)
	assert.Equal(t, detector.MatchCollapsed, d.Signals[0].MatchMode)
	assert.Equal(t, tier.RuleStrategicEntity, res.Tier.Rule)
}

func TestScreenConfirmedTargetShortCircuits(t *testing.T) {
	calls := 0
	counting := matcher.Rule{
		Name:  "counting",
		Roles: detector.Roles(),
		Eval: func(in *matcher.Input) (matcher.Verdict, detector.SignalResult) {
			calls++
			return matcher.Continue, detector.SignalResult{}
		},
	}
	s := newTestScreener(t, WithMatcherRules([]matcher.Rule{counting}))

	res := screen(t, s, "cn", map[string]string{"country_code": "CN", "name": "Acme"})
	assert.Equal(t, 0, calls)
	assert.Equal(t, detector.FlagConfirmedTarget, res.Detection.DataQualityFlag)
	assert.True(t, res.Detection.Matched)
	assert.Equal(t, detector.ConfidenceHigh, res.Detection.HighestConfidence)

	screen(t, s, "us", map[string]string{"country_code": "US", "name": "Acme"})
	assert.Equal(t, 2, calls)
}

func TestScreenDegradesOnMatcherPanic(t *testing.T) {
	exploding := matcher.Rule{
		Name:  "exploding",
		Roles: detector.Roles(),
		Eval: func(in *matcher.Input) (matcher.Verdict, detector.SignalResult) {
			panic("corrupt term table")
		},
	}
	s := newTestScreener(t, WithMatcherRules([]matcher.Rule{exploding}))

	res := screen(t, s, "r1", map[string]string{"name": "Huawei", "country": "US"})
	d := res.Detection
	assert.False(t, d.Matched)
	assert.Equal(t, detector.FlagUncertain, d.DataQualityFlag)
	assert.Contains(t, d.DataQualityNote, "corrupt term table")
	assert.Contains(t, res.Error, "matcher panic")
	assert.Equal(t, tier.RuleStrategicEntity, res.Tier.Rule)
}

func TestScreenMalformed(t *testing.T) {
	c, err := corpus.Default()
	require.NoError(t, err)
	settings := DefaultSettings()
	settings.Gate.MinIdentityFields = 1
	s, err := NewScreener(c, settings)
	require.NoError(t, err)

	tests := []struct {
		name string
		rec  detector.Record
	}{
		{"empty id", detector.Record{Fields: map[string]string{"name": "Acme"}}},
		{"nil fields", detector.Record{ID: "r"}},
		{"no identity fields", detector.Record{ID: "r", Fields: map[string]string{"amount": "1200", "po_number": "PO-77"}}},
		{"placeholder only", detector.Record{ID: "r", Fields: map[string]string{"name": "N/A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Screen(tt.rec)
			require.ErrorIs(t, err, ErrMalformedRecord)
			var recErr *RecordError
			assert.ErrorAs(t, err, &recErr)
		})
	}
}

func TestScreenLowDataStillTiered(t *testing.T) {
	s := newTestScreener(t)

	// description is an identity field, so a description-only record is
	// LOW_DATA rather than NO_DATA
	res := screen(t, s, "sparse", map[string]string{"description": "rare earth magnet assemblies for motors"})
	assert.Equal(t, detector.FlagLowData, res.Detection.DataQualityFlag)
	assert.False(t, res.Detection.Matched)
	assert.Equal(t, "TIER_1", res.Tier.Tier)

	res = screen(t, s, "empty", map[string]string{"amount": "1200"})
	assert.Equal(t, detector.FlagNoData, res.Detection.DataQualityFlag)
	assert.False(t, res.Detection.Matched)
	assert.NotEmpty(t, res.Tier.Tier)
}

func TestScreenUnspacedExcludedJurisdiction(t *testing.T) {
	s := newTestScreener(t)
	for _, country := range []string{"HongKong, China", "HONGKONG", "Macao SAR, China", "Hong-Kong"} {
		res := screen(t, s, "hk", map[string]string{
			"country": country,
			"name":    "Huawei Technologies",
		})
		d := res.Detection
		assert.Equal(t, detector.FlagConfirmedNonTarget, d.DataQualityFlag, country)
		assert.False(t, d.Matched, country)
		assert.Empty(t, d.Signals, country)
	}
}

func TestScreenIdempotentJSON(t *testing.T) {
	s := newTestScreener(t)
	fields := map[string]string{
		"country_code": "US",
		"name":         "Dahua Technology",
		"vendor_name":  "Hikvision",
		"description":  "Surveillance cameras, made in China",
	}

	first, err := json.Marshal(screen(t, s, "r", fields))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(screen(t, newTestScreener(t), "r", fields))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again))
	}
}

func TestScreenExclusionBeatsEntity(t *testing.T) {
	s := newTestScreener(t)
	res := screen(t, s, "park", map[string]string{"name": "China Mobile Home Park", "country": "US"})
	assert.False(t, res.Detection.Matched)
}

func TestScreenObserved(t *testing.T) {
	var buf bytes.Buffer
	obs := observability.NewStandardObserver(observability.ObservabilityDebug, &buf)
	s := newTestScreener(t, WithObserver(obs))

	screen(t, s, "r9", map[string]string{"name": "ZTE", "country": "US"})
	assert.Contains(t, buf.String(), `"component":"screener"`)
	assert.Contains(t, buf.String(), `"record_ref":"r9"`)
}

func TestScreenDebugSteps(t *testing.T) {
	var buf bytes.Buffer
	obs := observability.NewDebugObserver(&buf)
	s := newTestScreener(t, WithObserver(obs.StandardObserver))

	screen(t, s, "r10", map[string]string{"name": "H u a w e i Technologies", "country": "US"})
	out := buf.String()
	assert.Contains(t, out, "> screener: gate (r10)")
	assert.Contains(t, out, "> screener: match (r10)")
	assert.Contains(t, out, "signals=1")
	assert.Contains(t, out, "tier=TIER_1")
}

func TestNewScreenerRejectsBadSettings(t *testing.T) {
	c, err := corpus.Default()
	require.NoError(t, err)

	_, err = NewScreener(nil, DefaultSettings())
	assert.Error(t, err)

	settings := DefaultSettings()
	settings.Schema.Name = nil
	_, err = NewScreener(c, settings)
	assert.Error(t, err)

	settings = DefaultSettings()
	settings.Gate.LowDataThreshold = -1
	_, err = NewScreener(c, settings)
	assert.Error(t, err)
}
