// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package jsonl

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/formatters"
	"affiliate-scan/internal/formatters/shared"
)

// Formatter writes one JSON object per line. Screening output ends with a
// {"summary": ...} line and claims output with a {"stats": ...} line.
type Formatter struct{}

var _ formatters.Streamer = (*Formatter)(nil)

// NewFormatter creates a new JSON Lines formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "jsonl"
}

func (f *Formatter) Description() string {
	return "JSON Lines, one result per line, streamed as records are screened"
}

func (f *Formatter) FileExtension() string {
	return ".jsonl"
}

func (f *Formatter) FormatScreening(report formatters.ScreenReport, options formatters.FormatterOptions) (string, error) {
	var b strings.Builder
	if err := f.WriteResults(&b, report.Results, options); err != nil {
		return "", err
	}
	if err := f.FinishScreening(&b, report.Summary, options); err != nil {
		return "", err
	}
	return b.String(), nil
}

// StartScreening writes nothing; every line stands alone
func (f *Formatter) StartScreening(io.Writer, formatters.FormatterOptions) error {
	return nil
}

// WriteResults writes one line per displayed record
func (f *Formatter) WriteResults(w io.Writer, results []detector.ScreenResult, options formatters.FormatterOptions) error {
	enc := json.NewEncoder(w)
	for _, r := range formatters.Filter(results, options) {
		if err := enc.Encode(shared.Entry(r, options)); err != nil {
			return fmt.Errorf("error formatting JSON line for %s: %w", r.RecordRef, err)
		}
	}
	return nil
}

// FinishScreening writes the summary line when there is a summary
func (f *Formatter) FinishScreening(w io.Writer, summary *core.RunSummary, _ formatters.FormatterOptions) error {
	if summary == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(struct {
		Summary *core.RunSummary `json:"summary"`
	}{summary})
}

func (f *Formatter) FormatClaims(report formatters.ClaimsReport, options formatters.FormatterOptions) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, r := range report.Results {
		if err := enc.Encode(r); err != nil {
			return "", fmt.Errorf("error formatting JSON line for claim %s: %w", r.ClaimID, err)
		}
	}
	if report.Stats != nil {
		if err := enc.Encode(struct {
			Stats *claims.RunStats `json:"stats"`
		}{report.Stats}); err != nil {
			return "", fmt.Errorf("error formatting JSON stats line: %w", err)
		}
	}
	return b.String(), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
