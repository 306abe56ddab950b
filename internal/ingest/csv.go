// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
)

// CSVReader reads a headered CSV file, one record per row
type CSVReader struct {
	reader  *csv.Reader
	header  []string
	idIndex int
	row     int
}

// NewCSVReader reads the header row and locates the id column
func NewCSVReader(r io.Reader, idField string) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ingest: csv input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading csv header: %w", err)
	}

	c := &CSVReader{reader: cr, header: make([]string, len(header)), idIndex: -1, row: 1}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		c.header[i] = name
		if name == idField {
			c.idIndex = i
		}
	}
	if c.idIndex < 0 {
		return nil, fmt.Errorf("ingest: csv header has no %q column", idField)
	}
	return c, nil
}

// Header returns the column names
func (c *CSVReader) Header() []string {
	return c.header
}

// Next returns the next row as a record. Empty cells are omitted.
func (c *CSVReader) Next() (detector.Record, error) {
	row, err := c.reader.Read()
	c.row++
	if errors.Is(err, io.EOF) {
		return detector.Record{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return detector.Record{}, core.Malformed(fmt.Sprintf("row %d", c.row), parseErr.Err.Error())
		}
		return detector.Record{}, fmt.Errorf("ingest: row %d: %w", c.row, err)
	}

	rec := detector.Record{ID: strings.TrimSpace(row[c.idIndex]), Fields: make(map[string]string, len(row))}
	for i, value := range row {
		if i == c.idIndex || value == "" {
			continue
		}
		rec.Fields[c.header[i]] = value
	}
	return rec, nil
}
