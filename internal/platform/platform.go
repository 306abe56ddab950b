// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"runtime"
)

// AppName names the per-user configuration and data directories
const AppName = "affiliate-scan"

// ConfigDirEnv overrides the configuration directory on every platform
const ConfigDirEnv = "AFFILIATE_CONFIG_DIR"

// Platform defines the interface for platform-specific operations
type Platform interface {
	GetConfigDir() string
	GetDataDir() string
	GetTempDir() string
	IsAbsolutePath(path string) bool
	NormalizePath(path string) string
}

// Config describes the current platform
type Config struct {
	OS              string `json:"os" yaml:"os"`
	Architecture    string `json:"architecture" yaml:"architecture"`
	ConfigDirectory string `json:"config_directory" yaml:"config_directory"`
	DataDirectory   string `json:"data_directory" yaml:"data_directory"`
	TempDirectory   string `json:"temp_directory" yaml:"temp_directory"`
}

// GetPlatform returns the appropriate platform implementation for the current OS
func GetPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return &WindowsPlatform{}
	default:
		return &UnixPlatform{}
	}
}

// GetConfig returns platform configuration for the current system
func GetConfig() *Config {
	platform := GetPlatform()
	return &Config{
		OS:              runtime.GOOS,
		Architecture:    runtime.GOARCH,
		ConfigDirectory: platform.GetConfigDir(),
		DataDirectory:   platform.GetDataDir(),
		TempDirectory:   platform.GetTempDir(),
	}
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
