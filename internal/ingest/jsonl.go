// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
)

// maxLineBytes bounds a single JSON line
const maxLineBytes = 4 << 20

// JSONLReader reads one record per line. A line is either
// {"id": ..., "fields": {...}} or a flat object whose scalar members become
// fields.
type JSONLReader struct {
	reader  *bufio.Reader
	buf     []byte
	maxLine int
	idField string
	line    int
}

// NewJSONLReader creates a JSON Lines reader
func NewJSONLReader(r io.Reader, idField string) *JSONLReader {
	return &JSONLReader{
		reader:  bufio.NewReaderSize(r, 64*1024),
		maxLine: maxLineBytes,
		idField: idField,
	}
}

// Next returns the next record, skipping blank lines. A line longer than
// maxLineBytes is consumed and reported as malformed.
func (j *JSONLReader) Next() (detector.Record, error) {
	for {
		raw, tooLong, err := j.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return detector.Record{}, io.EOF
			}
			return detector.Record{}, fmt.Errorf("ingest: line %d: %w", j.line+1, err)
		}
		j.line++
		if tooLong {
			return detector.Record{}, core.Malformed(fmt.Sprintf("line %d", j.line),
				fmt.Sprintf("line exceeds %d bytes", j.maxLine))
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		rec, err := j.parse(line)
		if err != nil {
			return detector.Record{}, core.Malformed(fmt.Sprintf("line %d", j.line), err.Error())
		}
		return rec, nil
	}
}

// readLine returns the next line without its terminator. Bytes past maxLine
// are drained and dropped so the following line starts clean.
func (j *JSONLReader) readLine() ([]byte, bool, error) {
	j.buf = j.buf[:0]
	tooLong := false
	for {
		chunk, err := j.reader.ReadSlice('\n')
		if !tooLong {
			if len(j.buf)+len(chunk) > j.maxLine+1 {
				tooLong = true
				j.buf = j.buf[:0]
			} else {
				j.buf = append(j.buf, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(j.buf) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return j.buf, tooLong, nil
		case err != nil:
			return nil, false, err
		}
		return bytes.TrimSuffix(j.buf, []byte{'\n'}), tooLong, nil
	}
}

func (j *JSONLReader) parse(line []byte) (detector.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return detector.Record{}, fmt.Errorf("invalid JSON: %v", err)
	}
	if obj == nil {
		return detector.Record{}, fmt.Errorf("not a JSON object")
	}

	rec := detector.Record{Fields: make(map[string]string)}
	if id, ok := scalar(obj[j.idField]); ok {
		rec.ID = id
	}

	if nested, ok := obj["fields"].(map[string]any); ok {
		for k, v := range nested {
			if s, ok := scalar(v); ok {
				rec.Fields[k] = s
			}
		}
		return rec, nil
	}

	for k, v := range obj {
		if k == j.idField {
			continue
		}
		if s, ok := scalar(v); ok {
			rec.Fields[k] = s
		}
	}
	return rec, nil
}

// scalar renders a decoded JSON scalar as a field value. Nulls, objects and
// arrays carry no field value.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
