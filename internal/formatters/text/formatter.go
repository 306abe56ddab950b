// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/formatters"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// paint renders with the named color unless colors are disabled
func (f *Formatter) paint(options formatters.FormatterOptions, name, format string, args ...any) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) confidenceColor(level detector.ConfidenceLevel) string {
	switch level {
	case detector.ConfidenceHigh:
		return "red"
	case detector.ConfidenceMedium:
		return "yellow"
	case detector.ConfidenceLow:
		return "green"
	default:
		return "blue"
	}
}

func (f *Formatter) FormatScreening(report formatters.ScreenReport, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	var builder strings.Builder
	results := formatters.Filter(report.Results, options)

	if len(results) == 0 {
		if options.MatchedOnly || options.Confidence != nil {
			builder.WriteString("No matches found at the specified confidence levels.\n")
		} else {
			builder.WriteString("No records screened.\n")
		}
	} else if options.Verbose {
		for _, r := range results {
			f.appendDetailedResult(&builder, r, options)
		}
	} else {
		f.appendHeaders(&builder, results, options)
		for _, r := range results {
			f.appendSummaryLine(&builder, r, results, options)
		}
	}

	if report.Summary != nil {
		builder.WriteString("\n")
		f.appendRunSummary(&builder, *report.Summary, options)
	}
	return builder.String(), nil
}

// calculateRecordColumnWidth sizes the record column to the longest reference
func (f *Formatter) calculateRecordColumnWidth(results []detector.ScreenResult) int {
	maxWidth := 6
	for _, r := range results {
		if n := len([]rune(r.RecordRef)); n > maxWidth {
			maxWidth = n
		}
	}
	// Cap at 24 characters for readability
	return min(maxWidth, 24)
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, results []detector.ScreenResult, options formatters.FormatterOptions) {
	width := f.calculateRecordColumnWidth(results)
	header := fmt.Sprintf("%-8s %-*s %-20s %-16s %-6s %s\n", "LEVEL", width, "RECORD", "DATA QUALITY", "TIER", "SCORE", "CATEGORY")
	builder.WriteString(f.paint(options, "white", "%s", header))

	totalWidth := 8 + 1 + width + 1 + 20 + 1 + 16 + 1 + 6 + 1 + 12
	builder.WriteString(f.paint(options, "white", "%s\n", strings.Repeat("-", totalWidth)))
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, r detector.ScreenResult, all []detector.ScreenResult, options formatters.FormatterOptions) {
	d := r.Detection
	width := f.calculateRecordColumnWidth(all)

	ref := []rune(r.RecordRef)
	if len(ref) > width {
		ref = append(ref[:width-3], []rune("...")...)
	}

	category := d.Category
	if category == "" {
		category = "-"
	}
	if r.Error != "" {
		category += " (error)"
	}

	fmt.Fprintf(builder, "%s %s %s %s %s %s\n",
		f.paint(options, f.confidenceColor(d.HighestConfidence), "[%-6s]", d.HighestConfidence),
		f.paint(options, "white", "%-*s", width, string(ref)),
		f.paint(options, "cyan", "%-20s", d.DataQualityFlag),
		f.paint(options, "magenta", "%-16s", r.Tier.Tier),
		f.paint(options, "blue", "%6.2f", r.Tier.ImportanceScore),
		category)
}

// appendDetailedResult adds the full detection and tier detail of a record
func (f *Formatter) appendDetailedResult(builder *strings.Builder, r detector.ScreenResult, options formatters.FormatterOptions) {
	d := r.Detection
	builder.WriteString(f.paint(options, "white", "=== Record %s ===\n", r.RecordRef))

	fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Matched:"), matchedLabel(d.Matched))
	fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Confidence:"),
		f.paint(options, f.confidenceColor(d.HighestConfidence), "%s", d.HighestConfidence))
	fmt.Fprintf(builder, "%s %s (%d populated fields)\n", f.paint(options, "cyan", "Data quality:"),
		d.DataQualityFlag, d.PopulatedFields)
	if d.DataQualityNote != "" {
		fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Note:"), d.DataQualityNote)
	}
	if d.Category != "" {
		fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Category:"), d.Category)
	}
	fmt.Fprintf(builder, "%s %s\n", f.paint(options, "cyan", "Rationale:"), d.Rationale)

	if len(d.Signals) > 0 {
		builder.WriteString(f.paint(options, "cyan", "Signals:\n"))
		for _, s := range d.Signals {
			fmt.Fprintf(builder, "- %s %s in %s (%s match, rule %s): %q\n",
				f.paint(options, f.confidenceColor(s.Confidence), "[%s]", s.Confidence),
				s.Type, s.Field, s.MatchMode, s.Rule, s.MatchedValue)
		}
	}

	fmt.Fprintf(builder, "%s %s score %.2f (%s", f.paint(options, "cyan", "Tier:"),
		f.paint(options, "magenta", "%s", r.Tier.Tier), r.Tier.ImportanceScore, r.Tier.Category)
	if r.Tier.MatchedTerm != "" {
		fmt.Fprintf(builder, ", matched %q", r.Tier.MatchedTerm)
	}
	builder.WriteString(")\n")

	if r.Error != "" {
		fmt.Fprintf(builder, "%s %s\n", f.paint(options, "red", "Error:"), r.Error)
	}
	builder.WriteString("\n")
}

func matchedLabel(matched bool) string {
	if matched {
		return "yes"
	}
	return "no"
}

// appendRunSummary adds the run roll-up
func (f *Formatter) appendRunSummary(builder *strings.Builder, s core.RunSummary, options formatters.FormatterOptions) {
	builder.WriteString(f.paint(options, "white", "Run %s\n", s.RunID))
	duration := time.Duration(s.DurationMs) * time.Millisecond
	fmt.Fprintf(builder, "Screened %s of %s records from %s in %s",
		humanize.Comma(int64(s.Screened)), humanize.Comma(s.Read), s.Source, duration)
	if s.ResumedFrom > 0 {
		fmt.Fprintf(builder, " (resumed after %s)", humanize.Comma(s.ResumedFrom))
	}
	if s.Partial {
		builder.WriteString(" [totals cover the resumed part only]")
	}
	builder.WriteString("\n")

	fmt.Fprintf(builder, "%s matched, %s malformed, %s errors\n",
		f.paint(options, "red", "%s", humanize.Comma(int64(s.Matched))),
		f.paint(options, "yellow", "%s", humanize.Comma(int64(s.Malformed))),
		humanize.Comma(int64(s.Errors)))

	f.appendCounts(builder, "By data quality", s.ByFlag)
	f.appendCounts(builder, "By confidence", s.ByConfidence)
	f.appendCounts(builder, "By category", s.ByCategory)
	f.appendCounts(builder, "By tier", s.ByTier)
}

// appendCounts writes a sorted "name=count" line, skipping empty maps
func (f *Formatter) appendCounts(builder *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, humanize.Comma(int64(counts[k]))))
	}
	fmt.Fprintf(builder, "%s: %s\n", label, strings.Join(parts, ", "))
}

func (f *Formatter) FormatClaims(report formatters.ClaimsReport, options formatters.FormatterOptions) (string, error) {
	if options.NoColor {
		color.NoColor = true
	}

	var builder strings.Builder
	if len(report.Results) == 0 {
		builder.WriteString("No claims validated.\n")
	}
	for _, r := range report.Results {
		status := f.paint(options, "green", "[PASS]")
		if !r.Valid {
			status = f.paint(options, "red", "[FAIL]")
		}
		fmt.Fprintf(&builder, "%s %s %s score %s (%s)\n", status,
			f.paint(options, "white", "%s", r.ClaimID), r.Level,
			f.paint(options, "blue", "%.3f", r.ConfidenceScore), pluralIssues(len(r.Issues)))

		if options.Verbose {
			fmt.Fprintf(&builder, "    sources %.2f  evidence %.2f  temporal %.2f  logical %.2f\n",
				r.SubScores.SourceAgreement, r.SubScores.EvidenceQuality,
				r.SubScores.TemporalConsistency, r.SubScores.LogicalConsistency)
		}
		for _, issue := range r.Issues {
			if !options.Verbose && issue.Severity < claims.SeverityError {
				continue
			}
			f.appendIssue(&builder, issue, options)
		}
	}

	if report.Stats != nil {
		builder.WriteString("\n")
		f.appendStats(&builder, *report.Stats, options)
	}
	return builder.String(), nil
}

func pluralIssues(n int) string {
	if n == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", n)
}

func (f *Formatter) appendIssue(builder *strings.Builder, issue claims.Issue, options formatters.FormatterOptions) {
	name := "yellow"
	if issue.Severity >= claims.SeverityError {
		name = "red"
	} else if issue.Severity == claims.SeverityInfo {
		name = "blue"
	}
	fmt.Fprintf(builder, "  - %s %s/%s", f.paint(options, name, "%-8s", issue.Severity), issue.Category, issue.Check)
	if issue.Field != "" {
		fmt.Fprintf(builder, " [%s]", issue.Field)
	}
	fmt.Fprintf(builder, ": %s\n", issue.Description)
	if issue.Suggestion != "" && options.Verbose {
		fmt.Fprintf(builder, "      suggestion: %s\n", issue.Suggestion)
	}
}

func (f *Formatter) appendStats(builder *strings.Builder, s claims.RunStats, options formatters.FormatterOptions) {
	fmt.Fprintf(builder, "Validated %s claims: %s passed, %s failed (pass rate %.0f%%, average score %.3f)\n",
		humanize.Comma(int64(s.Total)),
		f.paint(options, "green", "%s", humanize.Comma(int64(s.Passed))),
		f.paint(options, "red", "%s", humanize.Comma(int64(s.Failed))),
		s.PassRate*100, s.AverageScore)
	if len(s.TopIssues) > 0 {
		builder.WriteString("Top issues:\n")
		for _, ic := range s.TopIssues {
			fmt.Fprintf(builder, "  %-22s %s\n", ic.Category, humanize.Comma(int64(ic.Count)))
		}
	}
	if len(s.Recommendations) > 0 {
		builder.WriteString("Recommendations:\n")
		for _, rec := range s.Recommendations {
			fmt.Fprintf(builder, "  - %s\n", rec)
		}
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
