// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown      ErrorType = iota
	ErrorTypeTransient              // Short-lived failures worth another attempt
	ErrorTypeBusy                   // Store locked by another writer
	ErrorTypePermanent              // Read-only or full store, bad permissions
	ErrorTypeCanceled               // Caller gave up
	ErrorTypeInvalidInput           // Constraint violations, bad data
)

// String returns the name of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeBusy:
		return "Busy"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeCanceled:
		return "Canceled"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// SQLite primary result codes
const (
	sqliteBusy   = 5
	sqliteLocked = 6
	sqliteIOErr  = 10
	sqliteFull   = 13
	sqliteRO     = 8
	sqliteConstr = 19
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// coder is implemented by driver errors that expose an SQLite result code
type coder interface {
	Code() int
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Original: err, Type: ErrorTypeCanceled}
	}

	var c coder
	if errors.As(err, &c) {
		switch c.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return &ClassifiedError{Original: err, Type: ErrorTypeBusy, Retryable: true}
		case sqliteIOErr:
			return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}
		case sqliteFull, sqliteRO:
			return &ClassifiedError{Original: err, Type: ErrorTypePermanent}
		case sqliteConstr:
			return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput}
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "database is locked") || strings.Contains(errStr, "sqlite_busy") ||
		strings.Contains(errStr, "database table is locked"):
		return &ClassifiedError{Original: err, Type: ErrorTypeBusy, Retryable: true}

	case strings.Contains(errStr, "disk i/o error"):
		return &ClassifiedError{Original: err, Type: ErrorTypeTransient, Retryable: true}

	case strings.Contains(errStr, "readonly database") || strings.Contains(errStr, "database or disk is full") ||
		strings.Contains(errStr, "permission denied"):
		return &ClassifiedError{Original: err, Type: ErrorTypePermanent}

	case strings.Contains(errStr, "constraint failed"):
		return &ClassifiedError{Original: err, Type: ErrorTypeInvalidInput}
	}

	return &ClassifiedError{Original: err, Type: ErrorTypeUnknown}
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}
