// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedComponent struct{}

func (namedComponent) GetComponentName() string { return "matcher" }

func TestStandardObserverDebugWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)
	o.SetRunID("run-1")

	finish := o.StartTiming("screener", "screen", "rec-7")
	finish(true, map[string]interface{}{"tier": "TIER_1"})

	var data StandardObservabilityData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "screener", data.Component)
	assert.Equal(t, "screen", data.Operation)
	assert.Equal(t, "rec-7", data.RecordRef)
	assert.Equal(t, "run-1", data.RunID)
	assert.True(t, data.Success)
	assert.True(t, strings.HasPrefix(data.RequestID, "req-"))
	assert.Equal(t, "TIER_1", data.Metadata["tier"])
}

func TestStandardObserverQuietLevels(t *testing.T) {
	for _, level := range []ObservabilityLevel{ObservabilityOff, ObservabilityMetrics} {
		var buf bytes.Buffer
		o := NewStandardObserver(level, &buf)
		o.StartTiming("screener", "screen", "rec")(false, nil)
		assert.Empty(t, buf.String())
	}

	var nilObserver *StandardObserver
	assert.False(t, nilObserver.Enabled())
}

func TestTimeComponent(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)
	o.TimeComponent(namedComponent{}, "match", "r1")(true, nil)
	assert.Contains(t, buf.String(), `"component":"matcher"`)
}

func TestStandardObserverConcurrent(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				o.StartTiming("screener", "screen", "r")(true, nil)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
}

func TestDebugObserverSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf)
	assert.Same(t, d, d.StandardObserver.DebugObserver)

	outer := d.StartStep("screener", "screen", "rec-1")
	inner := d.StartStep("gate", "assess", "rec-1")
	d.LogDetail("gate", "flag=UNCERTAIN")
	d.LogMetric("gate", "populated", 3)
	inner(true, "")
	outer(false, "matcher panic")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "> screener: screen (rec-1)", lines[0])
	assert.Equal(t, "  > gate: assess (rec-1)", lines[1])
	assert.Contains(t, lines[2], "flag=UNCERTAIN")
	assert.Contains(t, lines[3], "populated = 3")
	assert.True(t, strings.HasPrefix(lines[4], "  < gate: assess completed"))
	assert.True(t, strings.HasPrefix(lines[5], "< screener: screen failed"))
	assert.True(t, strings.HasSuffix(lines[5], "matcher panic"))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("Debug")
	require.NoError(t, err)
	assert.Equal(t, ObservabilityDebug, l)
	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, ObservabilityOff, l)
	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
