// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/corpus"
	"affiliate-scan/internal/detector"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := corpus.Default()
	require.NoError(t, err)
	return NewClassifier(c, detector.DefaultFieldSchema(), DefaultSettings())
}

func TestRuleOrder(t *testing.T) {
	cl := newTestClassifier(t)
	assert.Equal(t, []string{
		RuleStrategicEntity,
		RuleStrategicTechnology,
		"commodity.critical_minerals",
		"commodity.pharmaceuticals",
		"commodity.steel_metals",
		"commodity.textiles",
		"commodity.food_agriculture",
		"commodity.office_supplies",
		RuleGenericTechnology,
		RuleInsufficientDescription,
		RuleUnclassified,
	}, cl.Rules())
}

func TestClassify(t *testing.T) {
	cl := newTestClassifier(t)

	tests := []struct {
		name   string
		fields map[string]string
		tier   string
		rule   string
		score  float64
	}{
		{
			name:   "strategic entity beats everything",
			fields: map[string]string{"name": "Lockheed Martin", "description": "Steel fasteners and office supplies"},
			tier:   "TIER_1", rule: RuleStrategicEntity, score: 0.95,
		},
		{
			name:   "strategic technology",
			fields: map[string]string{"name": "Acme", "description": "Radiation hardened semiconductor wafers"},
			tier:   "TIER_1", rule: RuleStrategicTechnology, score: 0.85,
		},
		{
			name:   "commodity sub-category order",
			fields: map[string]string{"name": "Acme", "description": "Cotton textiles and steel hangers"},
			tier:   "TIER_3", rule: "commodity.steel_metals", score: 0.30,
		},
		{
			name:   "commodity score override",
			fields: map[string]string{"name": "Acme", "description": "Purchase of lithium carbonate"},
			tier:   "TIER_3", rule: "commodity.critical_minerals", score: 0.60,
		},
		{
			name:   "generic technology fallback",
			fields: map[string]string{"name": "Acme", "description": "Annual software license renewal"},
			tier:   "TIER_2", rule: RuleGenericTechnology, score: 0.50,
		},
		{
			name:   "insufficient description",
			fields: map[string]string{"name": "Acme", "description": "Misc"},
			tier:   "UNDETERMINED", rule: RuleInsufficientDescription, score: 0,
		},
		{
			name:   "missing description",
			fields: map[string]string{"name": "Acme"},
			tier:   "UNDETERMINED", rule: RuleInsufficientDescription, score: 0,
		},
		{
			name:   "unclassified default",
			fields: map[string]string{"name": "Acme", "description": "Janitorial services for the west campus"},
			tier:   "TIER_4", rule: RuleUnclassified, score: 0.10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := cl.Classify(detector.Record{ID: "r", Fields: tt.fields})
			assert.Equal(t, tt.tier, a.Tier)
			assert.Equal(t, tt.rule, a.Rule)
			assert.Equal(t, tt.rule, a.Category)
			assert.InDelta(t, tt.score, a.ImportanceScore, 1e-9)
			assert.Equal(t, "r", a.RecordRef)
		})
	}
}

func TestClassifyReportsMatchedTerm(t *testing.T) {
	cl := newTestClassifier(t)
	a := cl.Classify(detector.Record{ID: "r", Fields: map[string]string{"description": "Spare parts for U-A-V airframes"}})
	assert.Equal(t, RuleStrategicTechnology, a.Rule)
	assert.Equal(t, "UAV", a.MatchedTerm)
}

func TestClassifyIndependentOfJurisdiction(t *testing.T) {
	cl := newTestClassifier(t)
	fields := map[string]string{"description": "Annual software license renewal"}
	plain := cl.Classify(detector.Record{ID: "r", Fields: fields})

	withJurisdiction := map[string]string{"description": "Annual software license renewal", "country_code": "HK"}
	assert.Equal(t, plain, cl.Classify(detector.Record{ID: "r", Fields: withJurisdiction}))
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.GenericTechnology.Score = 1.5
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Unclassified.Tier = ""
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.CommodityScores["textiles"] = -1
	assert.Error(t, s.Validate())
}
