// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Confidence  core.ConfidenceFilter // Which highest-confidence levels to display; nil shows all
	MatchedOnly bool                  // Whether to drop records without a match
	Verbose     bool                  // Whether to display signals and tier detail
	NoColor     bool                  // Whether to disable colored output
}

// ScreenReport is the output of a screening run
type ScreenReport struct {
	Results []detector.ScreenResult
	Summary *core.RunSummary
}

// ClaimsReport is the output of a claim validation run
type ClaimsReport struct {
	Results []claims.ValidationResult
	Stats   *claims.RunStats
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// FormatScreening renders screening results and the run summary
	FormatScreening(report ScreenReport, options FormatterOptions) (string, error)

	// FormatClaims renders claim validation results and run statistics
	FormatClaims(report ClaimsReport, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Streamer is implemented by formatters whose screening output can be
// written one batch at a time, so a run never holds every result in memory.
type Streamer interface {
	// StartScreening writes what precedes the first result
	StartScreening(w io.Writer, options FormatterOptions) error

	// WriteResults writes one batch of results in input order
	WriteResults(w io.Writer, results []detector.ScreenResult, options FormatterOptions) error

	// FinishScreening writes what follows the last result
	FinishScreening(w io.Writer, summary *core.RunSummary, options FormatterOptions) error
}

// Filter applies the confidence and matched-only options, preserving order
func Filter(results []detector.ScreenResult, options FormatterOptions) []detector.ScreenResult {
	kept := make([]detector.ScreenResult, 0, len(results))
	for _, r := range results {
		if options.MatchedOnly && !r.Detection.Matched {
			continue
		}
		if !options.Confidence.Keep(r) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatInfo provides metadata about a formatter
type FormatInfo struct {
	Name        string
	Description string
	Extension   string
	MimeType    string
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Lookup returns the named formatter or an error listing the available ones
func Lookup(format string) (Formatter, error) {
	formatter, exists := Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter, nil
}

// ExportScreening formats a screening report with the named formatter
func ExportScreening(format string, report ScreenReport, options FormatterOptions) (string, error) {
	formatter, err := Lookup(format)
	if err != nil {
		return "", err
	}
	return formatter.FormatScreening(report, options)
}

// ExportClaims formats a claims report with the named formatter
func ExportClaims(format string, report ClaimsReport, options FormatterOptions) (string, error) {
	formatter, err := Lookup(format)
	if err != nil {
		return "", err
	}
	return formatter.FormatClaims(report, options)
}

// GetFormatInfo returns metadata about a specific formatter
func GetFormatInfo(name string) FormatInfo {
	formatter, exists := Get(name)
	if !exists {
		return FormatInfo{}
	}

	info := FormatInfo{
		Name:        formatter.Name(),
		Description: formatter.Description(),
		Extension:   formatter.FileExtension(),
	}

	switch name {
	case "json":
		info.MimeType = "application/json"
	case "jsonl":
		info.MimeType = "application/x-ndjson"
	case "csv":
		info.MimeType = "text/csv"
	case "yaml":
		info.MimeType = "application/x-yaml"
	case "text":
		info.MimeType = "text/plain"
	default:
		info.MimeType = "application/octet-stream"
	}

	return info
}

// GetSupportedFormats returns information about all available formatters
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}
