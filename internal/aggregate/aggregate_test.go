// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/quality"
)

func signal(typ detector.SignalType, role detector.FieldRole, level detector.ConfidenceLevel) detector.SignalResult {
	return detector.SignalResult{
		Type:       typ,
		Role:       role,
		Field:      role.String(),
		Confidence: level,
		Rationale:  string(typ) + " on " + role.String(),
	}
}

var (
	country   = signal(detector.SignalCountry, detector.RoleJurisdiction, detector.ConfidenceHigh)
	sourced   = signal(detector.SignalSourcedProduct, detector.RoleJurisdiction, detector.ConfidenceLow)
	name      = signal(detector.SignalEntityName, detector.RoleName, detector.ConfidenceHigh)
	mention   = signal(detector.SignalEntityName, detector.RoleDescription, detector.ConfidenceMedium)
	uncertain = quality.Assessment{Flag: detector.FlagUncertain, PopulatedFields: 3}
)

func TestAggregateNoSignals(t *testing.T) {
	r := Aggregate("r1", uncertain, nil)
	assert.False(t, r.Matched)
	assert.Equal(t, detector.ConfidenceNone, r.HighestConfidence)
	assert.Equal(t, detector.FlagUncertain, r.DataQualityFlag)
	assert.NotNil(t, r.Signals)
	assert.Empty(t, r.Signals)
	assert.Empty(t, r.Category)
	assert.NotEmpty(t, r.Rationale)
}

func TestAggregateKeepsDataQualityFlag(t *testing.T) {
	for _, flag := range []detector.QualityFlag{detector.FlagNoData, detector.FlagLowData} {
		gate := quality.Assessment{Flag: flag, Note: "sparse"}
		r := Aggregate("r", gate, nil)
		assert.False(t, r.Matched)
		assert.Equal(t, flag, r.DataQualityFlag)
		assert.Contains(t, r.Rationale, string(flag))
		assert.Contains(t, r.Rationale, "sparse")

		r = Aggregate("r", gate, []detector.SignalResult{name})
		assert.True(t, r.Matched)
		assert.Equal(t, flag, r.DataQualityFlag)
	}
}

func TestAggregateGateOnly(t *testing.T) {
	gate := quality.Assessment{Flag: detector.FlagConfirmedNonTarget, Note: "excluded jurisdiction HK"}
	r := Aggregate("r", gate, nil)
	assert.False(t, r.Matched)
	assert.Equal(t, detector.ConfidenceNone, r.HighestConfidence)
	assert.Contains(t, r.Rationale, "excluded jurisdiction HK")
}

func TestSourcedProductOnly(t *testing.T) {
	r := Aggregate("r", uncertain, []detector.SignalResult{sourced})
	assert.True(t, r.Matched)
	assert.Equal(t, detector.ConfidenceLow, r.HighestConfidence)
	assert.Equal(t, CategorySourcedProduct, r.Category)
}

func TestSourcedProductIsCapped(t *testing.T) {
	inflated := sourced
	inflated.Confidence = detector.ConfidenceHigh
	r := Aggregate("r", uncertain, []detector.SignalResult{inflated})
	assert.Equal(t, detector.ConfidenceLow, r.HighestConfidence)
}

func TestEntityNameDominatesSourcedProduct(t *testing.T) {
	r := Aggregate("r", uncertain, []detector.SignalResult{sourced, name})
	assert.Equal(t, detector.ConfidenceHigh, r.HighestConfidence)
	assert.Equal(t, string(detector.SignalEntityName), r.Category)
	assert.Len(t, r.Signals, 2)
}

func TestJurisdictionTakesPrecedence(t *testing.T) {
	r := Aggregate("r", uncertain, []detector.SignalResult{name, country, mention})
	assert.Equal(t, detector.ConfidenceHigh, r.HighestConfidence)
	assert.Equal(t, string(detector.SignalCountry), r.Category)

	primary, ok := Primary(r.Signals)
	require.True(t, ok)
	assert.Equal(t, detector.RoleJurisdiction, primary.Role)
	assert.Equal(t, "entity_name on name; country on jurisdiction; entity_name on description", r.Rationale)
}

func TestHighestMatchesMaxSignal(t *testing.T) {
	sets := [][]detector.SignalResult{
		{mention},
		{mention, sourced},
		{country},
		{name, mention},
	}
	for _, set := range sets {
		r := Aggregate("r", uncertain, set)
		want := detector.ConfidenceNone
		for _, s := range set {
			want = detector.MaxConfidence(want, Effective(s))
		}
		assert.Equal(t, want, r.HighestConfidence)
	}
}

// Adding any signal to any set never lowers the record confidence.
func TestMonotonicity(t *testing.T) {
	pool := []detector.SignalResult{country, sourced, name, mention}
	levels := []detector.ConfidenceLevel{
		detector.ConfidenceNone, detector.ConfidenceLow, detector.ConfidenceMedium, detector.ConfidenceHigh,
	}
	var expanded []detector.SignalResult
	for _, s := range pool {
		for _, l := range levels {
			v := s
			v.Confidence = l
			expanded = append(expanded, v)
		}
	}

	for mask := 0; mask < 1<<len(pool); mask++ {
		var base []detector.SignalResult
		for i, s := range pool {
			if mask&(1<<i) != 0 {
				base = append(base, s)
			}
		}
		before := Aggregate("r", uncertain, base).HighestConfidence
		for _, extra := range expanded {
			after := Aggregate("r", uncertain, append(append([]detector.SignalResult{}, base...), extra)).HighestConfidence
			assert.GreaterOrEqual(t, int(after), int(before))
		}
	}
}

func TestAggregateDoesNotAliasInput(t *testing.T) {
	in := []detector.SignalResult{name}
	r := Aggregate("r", uncertain, in)
	in[0].Rationale = "changed"
	assert.Equal(t, "entity_name on name", r.Signals[0].Rationale)
}

func TestAggregateIsIdempotent(t *testing.T) {
	signals := []detector.SignalResult{country, name, mention}
	first, err := json.Marshal(Aggregate("r", uncertain, signals))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(Aggregate("r", uncertain, signals))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
