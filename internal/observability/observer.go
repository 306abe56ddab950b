// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Observable is implemented by components that report timings under a
// stable component name
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
}

// StandardObserver emits one JSON line per completed operation. It is safe
// for concurrent use by screening workers.
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	runID         string
	mu            sync.Mutex
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// ParseLevel accepts off, metrics or debug
func ParseLevel(s string) (ObservabilityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return ObservabilityOff, nil
	case "metrics":
		return ObservabilityMetrics, nil
	case "debug":
		return ObservabilityDebug, nil
	}
	return ObservabilityOff, fmt.Errorf("observability: unknown level %q", s)
}

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// SetRunID tags every subsequent operation with a screening run
func (o *StandardObserver) SetRunID(runID string) {
	o.mu.Lock()
	o.runID = runID
	o.mu.Unlock()
}

// Enabled reports whether operations are written at all
func (o *StandardObserver) Enabled() bool {
	return o != nil && o.level > ObservabilityOff
}

// StartTiming returns a function to complete timing of one operation on a
// record or claim
func (o *StandardObserver) StartTiming(component, operation, recordRef string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			RecordRef:  recordRef,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}

		o.LogOperation(data)
	}
}

// TimeComponent is StartTiming keyed by an Observable's component name
func (o *StandardObserver) TimeComponent(c Observable, operation, recordRef string) func(success bool, metadata map[string]interface{}) {
	return o.StartTiming(c.GetComponentName(), operation, recordRef)
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if !o.Enabled() {
		return
	}

	data.RequestID = "req-" + uuid.NewString()

	o.mu.Lock()
	defer o.mu.Unlock()
	data.RunID = o.runID

	// Per-operation JSON only in debug mode
	if o.level == ObservabilityDebug {
		_ = json.NewEncoder(o.writer).Encode(data)
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	RunID      string                 `json:"run_id,omitempty"`
	RecordRef  string                 `json:"record_ref,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Signals    int                    `json:"signals,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
