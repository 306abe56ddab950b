// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ingest adapts delimited and line-oriented inputs into named-field
// records. Format differences end here; the pipeline only sees
// detector.Record values.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/platform"
)

// Format is an input encoding
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// DefaultIDField is the record identifier key in both formats
const DefaultIDField = "id"

// Reader yields records until io.EOF. Unparsable inputs surface as errors
// wrapping core.ErrMalformedRecord and the reader stays usable.
type Reader interface {
	Next() (detector.Record, error)
}

// ParseFormat accepts jsonl, ndjson, json or csv
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jsonl", "ndjson", "json":
		return FormatJSONL, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("ingest: unsupported format %q", s)
}

// DetectFormat infers the format from a file extension, defaulting to JSONL
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSONL
}

// NewReader wraps r in a reader for format
func NewReader(r io.Reader, format Format, idField string) (Reader, error) {
	if idField == "" {
		idField = DefaultIDField
	}
	switch format {
	case FormatJSONL:
		return NewJSONLReader(r, idField), nil
	case FormatCSV:
		return NewCSVReader(r, idField)
	}
	return nil, fmt.Errorf("ingest: unsupported format %q", format)
}

// File is an open input file and its reader
type File struct {
	Reader
	closer io.Closer
}

// Close closes the underlying file
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Open opens path ("-" for stdin). An empty format is inferred from the
// extension.
func Open(path string, format Format, idField string) (*File, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	var (
		in     io.Reader = os.Stdin
		closer io.Closer
	)
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: %w", platform.WrapFileError(err, path, "open"))
		}
		in, closer = fh, fh
	}
	r, err := NewReader(in, format, idField)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return &File{Reader: r, closer: closer}, nil
}
