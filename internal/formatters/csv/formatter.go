// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/formatters"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

var _ formatters.Streamer = (*Formatter)(nil)

// FormatScreening writes one row per record. The run summary is not part
// of CSV output.
func (f *Formatter) FormatScreening(report formatters.ScreenReport, options formatters.FormatterOptions) (string, error) {
	var b strings.Builder
	if err := f.StartScreening(&b, options); err != nil {
		return "", err
	}
	if err := f.WriteResults(&b, report.Results, options); err != nil {
		return "", err
	}
	return b.String(), nil
}

// StartScreening writes the header row
func (f *Formatter) StartScreening(w io.Writer, options formatters.FormatterOptions) error {
	headers := []string{"Record", "Matched", "Data Quality", "Confidence", "Category", "Tier", "Importance", "Tier Category", "Rationale", "Error"}
	if options.Verbose {
		headers = append(headers, "Signals")
	}
	_, err := io.WriteString(w, strings.Join(headers, ",")+"\n")
	return err
}

// WriteResults writes one row per displayed record
func (f *Formatter) WriteResults(w io.Writer, results []detector.ScreenResult, options formatters.FormatterOptions) error {
	for _, r := range formatters.Filter(results, options) {
		if _, err := io.WriteString(w, f.screenRow(r, options)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// FinishScreening writes nothing; CSV carries no summary
func (f *Formatter) FinishScreening(io.Writer, *core.RunSummary, formatters.FormatterOptions) error {
	return nil
}

func (f *Formatter) screenRow(r detector.ScreenResult, options formatters.FormatterOptions) string {
	d := r.Detection
	row := []string{
		f.escapeCSVField(r.RecordRef),
		strconv.FormatBool(d.Matched),
		f.escapeCSVField(string(d.DataQualityFlag)),
		d.HighestConfidence.String(),
		f.escapeCSVField(d.Category),
		f.escapeCSVField(r.Tier.Tier),
		strconv.FormatFloat(r.Tier.ImportanceScore, 'f', 2, 64),
		f.escapeCSVField(r.Tier.Category),
		f.escapeCSVField(d.Rationale),
		f.escapeCSVField(r.Error),
	}

	if options.Verbose {
		signalsJSON, err := json.Marshal(d.Signals)
		if err != nil {
			row = append(row, f.escapeCSVField("Error serializing signals"))
		} else {
			row = append(row, f.escapeCSVField(string(signalsJSON)))
		}
	}
	return strings.Join(row, ",")
}

// FormatClaims writes one row per claim with its issues joined by "; "
func (f *Formatter) FormatClaims(report formatters.ClaimsReport, options formatters.FormatterOptions) (string, error) {
	headers := []string{"Claim", "Level", "Valid", "Confidence Score", "Source Agreement", "Evidence Quality", "Temporal", "Logical", "Issues"}
	csvRows := []string{strings.Join(headers, ",")}
	for _, r := range report.Results {
		csvRows = append(csvRows, f.claimRow(r))
	}
	return strings.Join(csvRows, "\n") + "\n", nil
}

func (f *Formatter) claimRow(r claims.ValidationResult) string {
	issues := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		entry := fmt.Sprintf("%s %s/%s", issue.Severity, issue.Category, issue.Check)
		if issue.Field != "" {
			entry += " (" + issue.Field + ")"
		}
		issues = append(issues, entry)
	}
	row := []string{
		f.escapeCSVField(r.ClaimID),
		r.Level.String(),
		strconv.FormatBool(r.Valid),
		score(r.ConfidenceScore),
		score(r.SubScores.SourceAgreement),
		score(r.SubScores.EvidenceQuality),
		score(r.SubScores.TemporalConsistency),
		score(r.SubScores.LogicalConsistency),
		f.escapeCSVField(strings.Join(issues, "; ")),
	}
	return strings.Join(row, ",")
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	// Prevent CSV injection by sanitizing formula characters
	field = f.sanitizeFormulaInjection(field)

	// If field contains comma, quote, or newline, wrap in quotes and escape internal quotes
	if strings.Contains(field, ",") || strings.Contains(field, "\"") || strings.Contains(field, "\n") || strings.Contains(field, "\r") {
		// Escape internal quotes by doubling them
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	// Check if field starts with formula characters that could be dangerous in spreadsheets
	// Using direct byte comparisons for optimal performance
	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		// Prefix with single quote to prevent formula execution
		// This is a standard technique to neutralize CSV injection
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
