// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"affiliate-scan/internal/platform"
)

func TestConfigLocations(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(platform.ConfigDirEnv, dir)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("LOCALAPPDATA", "")

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), GetConfigFile())
	assert.Equal(t, filepath.Join(dir, "suppressions.yaml"), GetSuppressionsFile())
	assert.Equal(t, filepath.Join(dir, "runs.db"), GetDefaultDatabase())
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath(""))
	assert.NoError(t, ValidatePath(filepath.Join("data", "runs.db")))
	if runtime.GOOS != "windows" {
		err := ValidatePath("bad\x00path")
		var pathErr *PathValidationError
		assert.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "contains null byte", pathErr.Reason)
	}
	assert.Equal(t, "", NormalizePath(""))
}
