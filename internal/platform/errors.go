// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileError adds the path, operation and a remedy to a file error
type FileError struct {
	OriginalError error
	Path          string
	Operation     string
	Suggestion    string
}

func (fe *FileError) Error() string {
	if fe.Suggestion != "" {
		return fmt.Sprintf("%s %s: %s. %s", fe.Operation, fe.Path, fe.OriginalError.Error(), fe.Suggestion)
	}
	return fmt.Sprintf("%s %s: %s", fe.Operation, fe.Path, fe.OriginalError.Error())
}

func (fe *FileError) Unwrap() error {
	return fe.OriginalError
}

// WrapFileError wraps a file operation error with platform-specific advice
func WrapFileError(err error, filePath string, operation string) error {
	if err == nil {
		return nil
	}
	fe := &FileError{OriginalError: err, Path: filePath, Operation: operation}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		fe.Suggestion = "Check the path, or pass '-' to read from stdin."
	case IsPermissionError(err):
		if IsWindows() {
			fe.Suggestion = "Access denied. Close programs holding the file or run as Administrator."
		} else {
			fe.Suggestion = "Check file permissions with 'ls -la'."
		}
	case IsWindows() && strings.Contains(err.Error(), "being used by another process"):
		fe.Suggestion = "The file is being used by another process. Close it and try again."
	case strings.Contains(strings.ToLower(err.Error()), "read-only"):
		fe.Suggestion = "The location is read-only. Choose a writable path."
	}
	return fe
}

// IsPermissionError reports access-denied errors on any platform
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	return os.IsPermission(err) || errors.Is(err, fs.ErrPermission) ||
		strings.Contains(strings.ToLower(err.Error()), "permission denied") ||
		strings.Contains(strings.ToLower(err.Error()), "access is denied")
}
