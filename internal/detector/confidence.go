// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"strings"
)

// ConfidenceLevel is an ordinal strength rating. The zero value is
// ConfidenceNone and levels compare with the usual integer operators.
type ConfidenceLevel int

const (
	ConfidenceNone ConfidenceLevel = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH"}

func (c ConfidenceLevel) String() string {
	if c < ConfidenceNone || c > ConfidenceHigh {
		return fmt.Sprintf("ConfidenceLevel(%d)", int(c))
	}
	return confidenceNames[c]
}

// ParseConfidence accepts a level name in any case
func ParseConfidence(s string) (ConfidenceLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range confidenceNames {
		if name == upper {
			return ConfidenceLevel(i), nil
		}
	}
	return ConfidenceNone, fmt.Errorf("invalid confidence level: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (c ConfidenceLevel) MarshalText() ([]byte, error) {
	if c < ConfidenceNone || c > ConfidenceHigh {
		return nil, fmt.Errorf("invalid confidence level: %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ConfidenceLevel) UnmarshalText(text []byte) error {
	level, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = level
	return nil
}

// Cap returns c limited to ceiling
func (c ConfidenceLevel) Cap(ceiling ConfidenceLevel) ConfidenceLevel {
	if c > ceiling {
		return ceiling
	}
	return c
}

// MaxConfidence returns the highest of the given levels, or ConfidenceNone
func MaxConfidence(levels ...ConfidenceLevel) ConfidenceLevel {
	highest := ConfidenceNone
	for _, l := range levels {
		if l > highest {
			highest = l
		}
	}
	return highest
}
