// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/paths"
	"affiliate-scan/internal/platform"
)

// DefaultExpiry is how long a reviewed finding stays suppressed when no
// expiry is given
const DefaultExpiry = 90 * 24 * time.Hour

// ErrRuleNotFound is returned for an unknown rule id
var ErrRuleNotFound = errors.New("suppression rule not found")

// SuppressionRule dismisses one reviewed finding
type SuppressionRule struct {
	ID         string            `yaml:"id"`
	Hash       string            `yaml:"hash"`
	Reason     string            `yaml:"reason"`
	Enabled    bool              `yaml:"enabled"`
	CreatedBy  string            `yaml:"created_by,omitempty"`
	CreatedAt  time.Time         `yaml:"created_at"`
	LastSeenAt *time.Time        `yaml:"last_seen_at,omitempty"`
	ExpiresAt  *time.Time        `yaml:"expires_at,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
}

// Expired reports whether the rule no longer applies at now
func (r SuppressionRule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// SuppressionConfig represents the suppression configuration file
type SuppressionConfig struct {
	Version string            `yaml:"version"`
	Rules   []SuppressionRule `yaml:"rules"`
}

// SuppressionManager matches screening results against reviewed findings
type SuppressionManager struct {
	configPath string
	config     *SuppressionConfig
	now        func() time.Time
}

// NewSuppressionManager loads the rules at configPath. An empty path uses
// the platform default; a missing file yields an empty rule set.
func NewSuppressionManager(configPath string) (*SuppressionManager, error) {
	if configPath == "" {
		configPath = paths.GetSuppressionsFile()
	}
	sm := &SuppressionManager{
		configPath: configPath,
		config:     &SuppressionConfig{Version: "1.0"},
		now:        time.Now,
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if errors.Is(err, os.ErrNotExist) {
		return sm, nil
	}
	if err != nil {
		return nil, platform.WrapFileError(err, configPath, "read")
	}
	if err := yaml.Unmarshal(data, sm.config); err != nil {
		return nil, fmt.Errorf("suppressions %s: %w", configPath, err)
	}
	return sm, nil
}

// FindingHash identifies a matched result by record, category and the
// literal values behind its signals. A corpus change that alters what
// matched yields a new hash, so the finding is reviewed again.
func FindingHash(r detector.ScreenResult) string {
	values := make([]string, 0, len(r.Detection.Signals))
	for _, s := range r.Detection.Signals {
		values = append(values, string(s.Type)+":"+strings.ToLower(strings.TrimSpace(s.MatchedValue)))
	}
	sort.Strings(values)
	composite := strings.Join(append([]string{r.RecordRef, r.Detection.Category}, values...), "|")
	hash := sha256.Sum256([]byte(composite))
	return fmt.Sprintf("%x", hash)
}

// IsSuppressed reports whether a matched result has an active rule, and
// records that the rule was seen
func (sm *SuppressionManager) IsSuppressed(r detector.ScreenResult) (bool, *SuppressionRule) {
	if !r.Detection.Matched {
		return false, nil
	}
	hash := FindingHash(r)
	now := sm.now()
	for i := range sm.config.Rules {
		rule := &sm.config.Rules[i]
		if rule.Hash != hash || !rule.Enabled || rule.Expired(now) {
			continue
		}
		seen := now
		rule.LastSeenAt = &seen
		return true, rule
	}
	return false, nil
}

// Apply splits results into those to report and the suppressed count,
// preserving order
func (sm *SuppressionManager) Apply(results []detector.ScreenResult) ([]detector.ScreenResult, int) {
	kept := make([]detector.ScreenResult, 0, len(results))
	suppressed := 0
	for _, r := range results {
		if ok, _ := sm.IsSuppressed(r); ok {
			suppressed++
			continue
		}
		kept = append(kept, r)
	}
	return kept, suppressed
}

// AddSuppression records a reviewed finding. A nil expiresAt uses
// DefaultExpiry.
func (sm *SuppressionManager) AddSuppression(r detector.ScreenResult, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	if !r.Detection.Matched {
		return nil, fmt.Errorf("record %s did not match; nothing to suppress", r.RecordRef)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("a reason is required")
	}
	hash := FindingHash(r)
	for _, rule := range sm.config.Rules {
		if rule.Hash == hash {
			return nil, fmt.Errorf("suppression rule %s already exists for this finding", rule.ID)
		}
	}

	// Generate unique ID with sequential number
	maxID := 0
	for _, existing := range sm.config.Rules {
		var num int
		if _, err := fmt.Sscanf(existing.ID, "SUP-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}

	now := sm.now()
	if expiresAt == nil {
		defaultExpiry := now.Add(DefaultExpiry)
		expiresAt = &defaultExpiry
	}
	rule := SuppressionRule{
		ID:        fmt.Sprintf("SUP-%08d", maxID+1),
		Hash:      hash,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Metadata: map[string]string{
			"record_ref": r.RecordRef,
			"category":   r.Detection.Category,
			"confidence": r.Detection.HighestConfidence.String(),
		},
	}
	sm.config.Rules = append(sm.config.Rules, rule)
	if err := sm.Save(); err != nil {
		return nil, err
	}
	return &sm.config.Rules[len(sm.config.Rules)-1], nil
}

// RemoveSuppression removes a suppression rule by ID
func (sm *SuppressionManager) RemoveSuppression(id string) error {
	for i, rule := range sm.config.Rules {
		if rule.ID == id {
			sm.config.Rules = append(sm.config.Rules[:i], sm.config.Rules[i+1:]...)
			return sm.Save()
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// SetEnabled toggles a rule without removing it
func (sm *SuppressionManager) SetEnabled(id string, enabled bool) error {
	for i := range sm.config.Rules {
		if sm.config.Rules[i].ID == id {
			sm.config.Rules[i].Enabled = enabled
			return sm.Save()
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// ListSuppressions returns all suppression rules
func (sm *SuppressionManager) ListSuppressions() []SuppressionRule {
	return sm.config.Rules
}

// CleanupExpired removes expired rules and returns how many were removed
func (sm *SuppressionManager) CleanupExpired() (int, error) {
	now := sm.now()
	active := sm.config.Rules[:0]
	for _, rule := range sm.config.Rules {
		if !rule.Expired(now) {
			active = append(active, rule)
		}
	}
	removed := len(sm.config.Rules) - len(active)
	sm.config.Rules = active
	if removed > 0 {
		if err := sm.Save(); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

// Save writes the rules with restrictive permissions. Last-seen times
// recorded by IsSuppressed persist only through Save.
func (sm *SuppressionManager) Save() error {
	data, err := yaml.Marshal(sm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression config: %w", err)
	}
	if dir := filepath.Dir(sm.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return platform.WrapFileError(err, dir, "create")
		}
	}
	if err := os.WriteFile(sm.configPath, data, 0o600); err != nil {
		return platform.WrapFileError(err, sm.configPath, "write")
	}
	return nil
}

// ConfigPath returns the rules file location
func (sm *SuppressionManager) ConfigPath() string {
	return sm.configPath
}
