// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceOrdering(t *testing.T) {
	assert.True(t, ConfidenceNone < ConfidenceLow)
	assert.True(t, ConfidenceLow < ConfidenceMedium)
	assert.True(t, ConfidenceMedium < ConfidenceHigh)
}

func TestMaxConfidence(t *testing.T) {
	levels := []ConfidenceLevel{ConfidenceNone, ConfidenceLow, ConfidenceMedium, ConfidenceHigh}

	// exhaustive over pairs: max is commutative and never below either input
	for _, a := range levels {
		for _, b := range levels {
			m := MaxConfidence(a, b)
			assert.Equal(t, m, MaxConfidence(b, a))
			assert.GreaterOrEqual(t, int(m), int(a))
			assert.GreaterOrEqual(t, int(m), int(b))
			assert.True(t, m == a || m == b)
		}
	}
	assert.Equal(t, ConfidenceNone, MaxConfidence())
}

func TestConfidenceCap(t *testing.T) {
	assert.Equal(t, ConfidenceLow, ConfidenceHigh.Cap(ConfidenceLow))
	assert.Equal(t, ConfidenceNone, ConfidenceNone.Cap(ConfidenceLow))
}

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		in      string
		want    ConfidenceLevel
		wantErr bool
	}{
		{"high", ConfidenceHigh, false},
		{" Medium ", ConfidenceMedium, false},
		{"LOW", ConfidenceLow, false},
		{"none", ConfidenceNone, false},
		{"very high", ConfidenceNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseConfidence(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfidenceJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Level ConfidenceLevel `json:"level"`
	}{ConfidenceMedium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"MEDIUM"}`, string(data))

	var out struct {
		Level ConfidenceLevel `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"high"}`), &out))
	assert.Equal(t, ConfidenceHigh, out.Level)
}

func TestFlagConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, FlagConfidence(FlagConfirmedTarget))
	for _, f := range []QualityFlag{FlagNoData, FlagLowData, FlagConfirmedNonTarget, FlagUncertain} {
		assert.Equal(t, ConfidenceNone, FlagConfidence(f), f)
	}
	assert.True(t, FlagConfirmedNonTarget.IsConfirmed())
	assert.False(t, FlagLowData.IsConfirmed())
}

func TestRecordAmount(t *testing.T) {
	schema := DefaultFieldSchema()

	v, ok := Record{Fields: map[string]string{"amount": "$1,250.50"}}.Amount(schema)
	require.True(t, ok)
	assert.InDelta(t, 1250.50, v, 1e-9)

	_, ok = Record{Fields: map[string]string{"amount": "n/a"}}.Amount(schema)
	assert.False(t, ok)

	_, ok = Record{}.Amount(schema)
	assert.False(t, ok)
}

func TestFieldSchemaValidate(t *testing.T) {
	require.NoError(t, DefaultFieldSchema().Validate())

	s := DefaultFieldSchema()
	s.Jurisdiction = nil
	assert.Error(t, s.Validate())

	s = DefaultFieldSchema()
	s.Description = append(s.Description, "name")
	assert.ErrorContains(t, s.Validate(), "more than one role")

	assert.Equal(t, []string{"jurisdiction_code", "country_code", "country", "jurisdiction",
		"name", "recipient_name", "vendor_name", "parent_name", "description"},
		DefaultFieldSchema().IdentityFields())
}
