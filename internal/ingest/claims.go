// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/platform"
)

// ReadClaims decodes a JSON array of claims or one claim per line
func ReadClaims(r io.Reader) ([]claims.Claim, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []claims.Claim{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading claims: %w", err)
	}

	if first == '[' {
		dec := json.NewDecoder(br)
		dec.UseNumber()
		var out []claims.Claim
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("ingest: decoding claims array: %w", err)
		}
		return out, nil
	}

	out := []claims.Claim{}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	for n := 1; ; n++ {
		var c claims.Claim
		err := dec.Decode(&c)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: decoding claim %d: %w", n, err)
		}
		out = append(out, c)
	}
}

// ReadClaimsYAML decodes a YAML sequence of claims
func ReadClaimsYAML(r io.Reader) ([]claims.Claim, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading claims: %w", err)
	}
	out := []claims.Claim{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("ingest: decoding claims yaml: %w", err)
	}
	return out, nil
}

// ReadClaimsFile reads claims from path ("-" for stdin as JSON). YAML is
// chosen by a .yaml or .yml extension.
func ReadClaimsFile(path string) ([]claims.Claim, error) {
	if path == "-" {
		return ReadClaims(os.Stdin)
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", platform.WrapFileError(err, path, "open"))
	}
	defer fh.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadClaimsYAML(fh)
	}
	return ReadClaims(fh)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
