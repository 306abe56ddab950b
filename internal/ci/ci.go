// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ci

import (
	"fmt"
	"os"
	"strings"

	"affiliate-scan/internal/detector"
)

// Exit codes
const (
	ExitOK       = 0
	ExitFindings = 1 // matches or failed claims at or above the fail-on threshold
	ExitError    = 2 // records or claims could not be processed
)

// FailOnNone disables failing on findings
const FailOnNone = "none"

// Detector reports whether the scan runs inside a batch pipeline
type Detector struct {
	isPipeline bool
	config     *Config
}

// Config holds settings tuned for unattended pipeline runs
type Config struct {
	Quiet   bool   // suppress progress output
	NoColor bool   // disable colored output
	FailOn  string // "high", "medium", "low", "none"
}

// pipelineVars are set by common CI runners
var pipelineVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL", "CODEBUILD_BUILD_ID", "TF_BUILD"}

// NewDetector creates a Detector from the process environment
func NewDetector() *Detector {
	return NewDetectorWithFlag(false)
}

// NewDetectorWithFlag creates a Detector with explicit flag override
func NewDetectorWithFlag(explicitMode bool) *Detector {
	d := &Detector{}
	d.detectEnvironment(os.Getenv)
	if explicitMode {
		d.isPipeline = true
	}
	d.generateConfig(os.Getenv)
	return d
}

// IsPipeline returns true if running in a batch pipeline
func (d *Detector) IsPipeline() bool {
	return d.isPipeline
}

// Config returns the pipeline settings
func (d *Detector) Config() *Config {
	return d.config
}

func (d *Detector) detectEnvironment(getenv func(string) string) {
	for _, name := range pipelineVars {
		if v := getenv(name); v != "" && !strings.EqualFold(v, "false") {
			d.isPipeline = true
			return
		}
	}
	d.isPipeline = false
}

func (d *Detector) generateConfig(getenv func(string) string) {
	config := &Config{
		Quiet:   d.isPipeline,
		NoColor: d.isPipeline,
		FailOn:  FailOnNone,
	}
	if d.isPipeline {
		config.FailOn = "high"
	}

	// Allow environment variable override for exit behavior
	if failOn := getenv("AFFILIATE_FAIL_ON"); failOn != "" {
		if err := ValidateFailOn(failOn); err == nil {
			config.FailOn = strings.ToLower(failOn)
		}
	}
	d.config = config
}

// ValidateFailOn accepts a confidence level name or "none"
func ValidateFailOn(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "medium", "low", FailOnNone:
		return nil
	}
	return fmt.Errorf("invalid fail-on level %q (want high, medium, low or none)", s)
}

// ShouldFail reports whether a finding at level crosses the threshold
func (c *Config) ShouldFail(level detector.ConfidenceLevel) bool {
	if c == nil {
		return false
	}
	switch strings.ToLower(c.FailOn) {
	case FailOnNone, "":
		return false
	case "medium":
		return level >= detector.ConfidenceMedium
	case "low":
		return level >= detector.ConfidenceLow
	default:
		return level >= detector.ConfidenceHigh
	}
}

// ExitCode maps a run outcome to the process exit code. Errors win over
// findings.
func ExitCode(hasFindings, hasErrors bool, highest detector.ConfidenceLevel, config *Config) int {
	if hasErrors {
		return ExitError
	}
	if hasFindings && config.ShouldFail(highest) {
		return ExitFindings
	}
	return ExitOK
}
