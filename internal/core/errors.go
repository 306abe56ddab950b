// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks records that violate the adapter contract.
	// They are skipped and counted, never screened.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrResumeWithoutSink is returned when resume is requested but no
	// checkpoint store is configured
	ErrResumeWithoutSink = errors.New("resume requires a result sink")
)

// RecordError ties an error to the record that caused it
type RecordError struct {
	RecordID string
	Err      error
}

func (e *RecordError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("record: %v", e.Err)
	}
	return fmt.Sprintf("record %q: %v", e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Malformed wraps reason as a malformed-record error for id
func Malformed(id, reason string) error {
	return &RecordError{RecordID: id, Err: fmt.Errorf("%w: %s", ErrMalformedRecord, reason)}
}
