// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"affiliate-scan/internal/claims"
	"affiliate-scan/internal/core"
	"affiliate-scan/internal/detector"
	"affiliate-scan/internal/paths"
	"affiliate-scan/internal/quality"
	"affiliate-scan/internal/tier"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format           string `yaml:"format"`
		ConfidenceLevels string `yaml:"confidence_levels"`
		MatchedOnly      bool   `yaml:"matched_only"`
		Workers          int    `yaml:"workers"`
		IDField          string `yaml:"id_field"`
		Verbose          bool   `yaml:"verbose"`
		Debug            bool   `yaml:"debug"`
		NoColor          bool   `yaml:"no_color"`
		Progress         bool   `yaml:"progress"`
		LogLevel         string `yaml:"log_level"`
		LogFormat        string `yaml:"log_format"`
	} `yaml:"defaults"`

	// Corpus file; empty uses the embedded default corpus
	Corpus struct {
		Path string `yaml:"path"`
	} `yaml:"corpus"`

	Schema detector.FieldSchema `yaml:"schema"`
	Gate   quality.Settings     `yaml:"gate"`
	Tiers  tier.Settings        `yaml:"tiers"`
	Claims claims.Settings      `yaml:"claims"`

	// Result sink; an empty path keeps results in memory only
	Storage struct {
		Path      string `yaml:"path"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"storage"`

	// Reviewed findings to hide; empty uses the platform default file
	Suppressions struct {
		Path string `yaml:"path"`
	} `yaml:"suppressions"`

	// Per-worker normalization memo
	Cache struct {
		TTL     time.Duration `yaml:"ttl"`
		Cleanup time.Duration `yaml:"cleanup"`
	} `yaml:"cache"`

	// Profiles for different screening scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a screening profile with specific settings. Zero
// values leave the defaults untouched.
type Profile struct {
	Description      string `yaml:"description"`
	Format           string `yaml:"format"`
	ConfidenceLevels string `yaml:"confidence_levels"`
	MatchedOnly      bool   `yaml:"matched_only"`
	Verbose          bool   `yaml:"verbose"`
	NoColor          bool   `yaml:"no_color"`
	Workers          int    `yaml:"workers"`
	CorpusPath       string `yaml:"corpus_path"`
	ClaimsLevel      string `yaml:"claims_level"`
}

var validLogLevels = []string{"debug", "info", "warn", "warning", "error"}

// defaultConfig returns the built-in configuration
func defaultConfig() *Config {
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Format = "text"
	config.Defaults.ConfidenceLevels = "all"
	config.Defaults.MatchedOnly = false
	config.Defaults.Workers = 0 // one per CPU, capped
	config.Defaults.IDField = "id"
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false
	config.Defaults.Progress = true
	config.Defaults.LogLevel = "info"
	config.Defaults.LogFormat = "text"

	config.Schema = detector.DefaultFieldSchema()
	config.Gate = quality.DefaultSettings()
	config.Tiers = tier.DefaultSettings()
	config.Claims = claims.DefaultSettings()

	config.Storage.BatchSize = core.DefaultBatchSize

	config.Cache.TTL = 10 * time.Minute
	config.Cache.Cleanup = 5 * time.Minute

	config.Profiles["triage"] = Profile{
		Description:      "Matched records at medium confidence or better, one line each",
		Format:           "text",
		ConfidenceLevels: "high,medium",
		MatchedOnly:      true,
	}
	config.Profiles["audit"] = Profile{
		Description: "Every record with full signal detail; forensic claim validation",
		Format:      "json",
		Verbose:     true,
		NoColor:     true,
		ClaimsLevel: "FORENSIC",
	}

	return config
}

// LoadConfig loads configuration from the specified file path. An empty
// path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultProgress := config.Defaults.Progress

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	if !containsField(data, "defaults", "progress") {
		config.Defaults.Progress = defaultProgress
	}

	// Relative corpus and storage paths resolve against the config file
	baseDir := filepath.Dir(cleanPath)
	config.Corpus.Path = resolveRelative(baseDir, config.Corpus.Path)
	config.Storage.Path = resolveRelative(baseDir, config.Storage.Path)
	config.Suppressions.Path = resolveRelative(baseDir, config.Suppressions.Path)
	for name, profile := range config.Profiles {
		profile.CorpusPath = resolveRelative(baseDir, profile.CorpusPath)
		config.Profiles[name] = profile
	}

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// resolveRelative anchors a relative path at baseDir
func resolveRelative(baseDir, path string) string {
	if path == "" {
		return ""
	}
	path = paths.NormalizePath(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// FindConfigFile looks for a configuration file in standard locations using platform-aware paths
func FindConfigFile() string {
	// Check current directory first (project-specific config)
	for _, name := range []string{"affiliate-scan.yaml", "affiliate-scan.yml", ".affiliate-scan.yaml", ".affiliate-scan.yml"} {
		if fileExists(name) {
			return name
		}
	}

	// Check standard location using platform-aware paths
	if configFile := paths.GetConfigFile(); fileExists(configFile) {
		return configFile
	}
	if alt := filepath.Join(paths.GetConfigDir(), "config.yml"); fileExists(alt) {
		return alt
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays a profile's non-zero settings onto the defaults
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}

	if profile.Format != "" {
		c.Defaults.Format = profile.Format
	}
	if profile.ConfidenceLevels != "" {
		c.Defaults.ConfidenceLevels = profile.ConfidenceLevels
	}
	if profile.MatchedOnly {
		c.Defaults.MatchedOnly = true
	}
	if profile.Verbose {
		c.Defaults.Verbose = true
	}
	if profile.NoColor {
		c.Defaults.NoColor = true
	}
	if profile.Workers > 0 {
		c.Defaults.Workers = profile.Workers
	}
	if profile.CorpusPath != "" {
		c.Corpus.Path = profile.CorpusPath
	}
	if profile.ClaimsLevel != "" {
		level, err := claims.ParseLevel(profile.ClaimsLevel)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		c.Claims.Level = level
	}
	return ValidateConfig(c)
}

// ScreenSettings returns the per-record pipeline settings
func (c *Config) ScreenSettings() core.Settings {
	return core.Settings{Schema: c.Schema, Gate: c.Gate, Tiers: c.Tiers}
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			// Last key - check if it exists
			_, exists := current[key]
			return exists
		}
		// Intermediate key - navigate deeper
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig fails fast on settings no stage could run with
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	d := config.Defaults
	if strings.TrimSpace(d.Format) == "" {
		return fmt.Errorf("defaults.format cannot be empty")
	}
	if _, err := core.ParseConfidenceLevels(d.ConfidenceLevels); err != nil {
		return fmt.Errorf("defaults.confidence_levels: %w", err)
	}
	if d.Workers < 0 {
		return fmt.Errorf("defaults.workers must be >= 0, got %d", d.Workers)
	}
	if strings.TrimSpace(d.IDField) == "" {
		return fmt.Errorf("defaults.id_field cannot be empty")
	}
	if !validLogLevel(d.LogLevel) {
		return fmt.Errorf("defaults.log_level %q is not one of %s", d.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if f := strings.ToLower(d.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("defaults.log_format %q must be text or json", d.LogFormat)
	}

	if err := config.ScreenSettings().Validate(); err != nil {
		return err
	}
	if err := config.Claims.Validate(); err != nil {
		return err
	}

	if config.Storage.BatchSize <= 0 {
		return fmt.Errorf("storage.batch_size must be > 0, got %d", config.Storage.BatchSize)
	}
	if config.Cache.TTL < 0 || config.Cache.Cleanup < 0 {
		return fmt.Errorf("cache durations must be >= 0")
	}

	// Validate paths in configuration
	if err := validateConfigPaths(config); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	return nil
}

func validLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

// validateConfigPaths validates all paths in the configuration
func validateConfigPaths(config *Config) error {
	if err := paths.ValidatePath(config.Corpus.Path); err != nil {
		return fmt.Errorf("invalid corpus path: %w", err)
	}
	if err := paths.ValidatePath(config.Storage.Path); err != nil {
		return fmt.Errorf("invalid storage path: %w", err)
	}
	if err := paths.ValidatePath(config.Suppressions.Path); err != nil {
		return fmt.Errorf("invalid suppressions path: %w", err)
	}
	for profileName, profile := range config.Profiles {
		if err := paths.ValidatePath(profile.CorpusPath); err != nil {
			return fmt.Errorf("invalid corpus path in profile '%s': %w", profileName, err)
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = defaultConfig()
	}
	return cfg
}
