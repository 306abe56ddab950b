// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
)

func drain(t *testing.T, r Reader) (records []detector.Record, malformed int) {
	t.Helper()
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, malformed
		}
		if err != nil {
			require.ErrorIs(t, err, core.ErrMalformedRecord)
			malformed++
			continue
		}
		records = append(records, rec)
	}
}

func TestJSONLReader(t *testing.T) {
	input := strings.Join([]string{
		`{"id": "a1", "fields": {"name": "Huawei", "amount": 1200.5, "country_code": null}}`,
		``,
		`{"id": 42, "name": "Acme", "country": "US", "tags": ["x"], "active": true}`,
		`{not json`,
		`{"name": "no id"}`,
	}, "\n")

	records, malformed := drain(t, NewJSONLReader(strings.NewReader(input), DefaultIDField))
	assert.Equal(t, 1, malformed)
	require.Len(t, records, 3)

	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, map[string]string{"name": "Huawei", "amount": "1200.5"}, records[0].Fields)

	assert.Equal(t, "42", records[1].ID)
	assert.Equal(t, map[string]string{"name": "Acme", "country": "US", "active": "true"}, records[1].Fields)

	assert.Equal(t, "", records[2].ID)
}

func TestJSONLMalformedNamesLine(t *testing.T) {
	r := NewJSONLReader(strings.NewReader("{}\n[1,2]\n"), DefaultIDField)
	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorIs(t, err, core.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")
}

func TestJSONLOverlongLineIsSkipped(t *testing.T) {
	huge := `{"id": "big", "name": "` + strings.Repeat("x", 300) + `"}`
	input := `{"id": "r1", "name": "Acme"}` + "\n" + huge + "\n" + `{"id": "r3", "name": "Foxconn"}`

	r := NewJSONLReader(strings.NewReader(input), DefaultIDField)
	r.maxLine = 128

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)

	_, err = r.Next()
	require.ErrorIs(t, err, core.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "r3", rec.ID)
	assert.Equal(t, "Foxconn", rec.Fields["name"])

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLOverlongLineAcrossReadBuffer(t *testing.T) {
	huge := `{"name": "` + strings.Repeat("y", maxLineBytes) + `"}`
	input := huge + "\n" + `{"id": "after", "name": "Acme"}` + "\n"

	records, malformed := drain(t, NewJSONLReader(strings.NewReader(input), DefaultIDField))
	assert.Equal(t, 1, malformed)
	require.Len(t, records, 1)
	assert.Equal(t, "after", records[0].ID)
}

func TestCSVReader(t *testing.T) {
	input := "\ufeffid,name,country_code,description\n" +
		"r1,Huawei Technologies,CN,routers\n" +
		"r2,\"Acme, Inc.\",,office supplies\n" +
		"r3,too,many,columns,here\n" +
		"r4,Foxconn,HK,\n"

	r, err := NewCSVReader(strings.NewReader(input), DefaultIDField)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "country_code", "description"}, r.Header())

	records, malformed := drain(t, r)
	assert.Equal(t, 1, malformed)
	require.Len(t, records, 3)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "CN", records[0].Fields["country_code"])
	assert.Equal(t, map[string]string{"name": "Acme, Inc.", "description": "office supplies"}, records[1].Fields)
	assert.Equal(t, "r4", records[2].ID)
}

func TestCSVReaderHeaderErrors(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader(""), DefaultIDField)
	assert.ErrorContains(t, err, "no header")

	_, err = NewCSVReader(strings.NewReader("name,country\nAcme,US\n"), DefaultIDField)
	assert.ErrorContains(t, err, `"id"`)

	r, err := NewCSVReader(strings.NewReader("award_id,name\nA-1,Acme\n"), "award_id")
	require.NoError(t, err)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "A-1", rec.ID)
}

func TestOpenDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "awards.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name\nr1,ZTE\n"), 0o600))

	f, err := Open(csvPath, "", "")
	require.NoError(t, err)
	defer f.Close()
	rec, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "ZTE", rec.Fields["name"])

	_, err = Open(filepath.Join(dir, "missing.jsonl"), "", "")
	assert.Error(t, err)

	assert.Equal(t, FormatJSONL, DetectFormat("x.ndjson"))
	assert.Equal(t, FormatCSV, DetectFormat("X.CSV"))

	format, err := ParseFormat("NDJSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONL, format)
	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestReadClaims(t *testing.T) {
	array := `[{"id": "c1", "claim_type": "bombshell", "value": {"match_rate": 0.2}, "evidence": [{"id": "e1", "source_id": "s1"}]}]`
	got, err := ReadClaims(strings.NewReader(array))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, claims.ClaimBombshell, got[0].ClaimType)
	assert.Len(t, got[0].Evidence, 1)

	lines := "{\"id\": \"c1\"}\n{\"id\": \"c2\", \"value\": {\"count\": 3}}\n"
	got, err = ReadClaims(strings.NewReader(lines))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[1].ID)

	got, err = ReadClaims(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadClaims(strings.NewReader(`{"id": `))
	assert.Error(t, err)
}

func TestReadClaimsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.yaml")
	doc := `
- id: c1
  claim_type: major
  value:
    affiliated_count: 12
    fiscal_year: 2024
  sources:
    - id: usaspending
      value: 12
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := ReadClaimsFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, claims.ClaimMajor, got[0].ClaimType)
	require.NotNil(t, got[0].Sources[0].Value)
	assert.Equal(t, 12.0, *got[0].Sources[0].Value)
}
