// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package aggregate merges the gate verdict and the extracted signals into
// a record-level detection result.
package aggregate

import (
	"fmt"
	"strings"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/quality"
)

// CategorySourcedProduct tags matches that rest only on product origin
const CategorySourcedProduct = string(detector.SignalSourcedProduct)

// sourcedProductCeiling is the highest confidence a sourced-product signal
// can contribute.
const sourcedProductCeiling = detector.ConfidenceLow

// Effective returns the confidence a signal contributes to the record
func Effective(s detector.SignalResult) detector.ConfidenceLevel {
	if s.Type == detector.SignalSourcedProduct {
		return s.Confidence.Cap(sourcedProductCeiling)
	}
	return s.Confidence
}

// Highest returns the maximum effective confidence over signals. An
// entity-name signal therefore dominates a co-occurring sourced-product
// signal, and adding a signal never lowers the result.
func Highest(signals []detector.SignalResult) detector.ConfidenceLevel {
	highest := detector.ConfidenceNone
	for _, s := range signals {
		highest = detector.MaxConfidence(highest, Effective(s))
	}
	return highest
}

// Primary picks the signal that characterizes the record: the one with the
// strongest field role (jurisdiction, then name, then free text) among
// those at the highest effective confidence. Ties keep signal order.
func Primary(signals []detector.SignalResult) (detector.SignalResult, bool) {
	if len(signals) == 0 {
		return detector.SignalResult{}, false
	}
	highest := Highest(signals)
	best := -1
	for i, s := range signals {
		if Effective(s) != highest {
			continue
		}
		if best < 0 || s.Role < signals[best].Role {
			best = i
		}
	}
	return signals[best], true
}

// Category returns the record category implied by its signals
func Category(signals []detector.SignalResult) string {
	if len(signals) == 0 {
		return ""
	}
	onlySourced := true
	for _, s := range signals {
		if s.Type != detector.SignalSourcedProduct {
			onlySourced = false
			break
		}
	}
	if onlySourced {
		return CategorySourcedProduct
	}
	primary, _ := Primary(signals)
	return string(primary.Type)
}

// Aggregate builds the detection result for one record. When the gate
// resolved the record the signals are the gate's own; otherwise they come
// from the matcher.
func Aggregate(recordRef string, gate quality.Assessment, signals []detector.SignalResult) detector.DetectionResult {
	kept := make([]detector.SignalResult, len(signals))
	copy(kept, signals)

	result := detector.DetectionResult{
		RecordRef:         recordRef,
		Matched:           len(kept) > 0,
		Signals:           kept,
		DataQualityFlag:   gate.Flag,
		DataQualityNote:   gate.Note,
		PopulatedFields:   gate.PopulatedFields,
		HighestConfidence: Highest(kept),
		Category:          Category(kept),
	}
	if len(kept) == 0 {
		result.HighestConfidence = detector.FlagConfidence(gate.Flag)
	}
	result.Rationale = rationale(kept, gate)
	return result
}

func rationale(signals []detector.SignalResult, gate quality.Assessment) string {
	if len(signals) > 0 {
		parts := make([]string, len(signals))
		for i, s := range signals {
			parts[i] = s.Rationale
		}
		return strings.Join(parts, "; ")
	}
	if gate.Note != "" {
		return fmt.Sprintf("no signals (%s): %s", gate.Flag, gate.Note)
	}
	return fmt.Sprintf("no signals (%s): %d populated identity field(s) checked against all rules",
		gate.Flag, gate.PopulatedFields)
}
