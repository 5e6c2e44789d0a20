// Package pathutil provides utilities for safe path handling and validation.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath validates that a path is safe to use for file operations.
// It rejects directory traversal attempts and returns a cleaned absolute
// path.
func ValidatePath(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path contains directory traversal pattern: %s", path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	return absPath, nil
}

// ValidateConfigPath validates a configuration file path. Config files are
// expected to be YAML files.
func ValidateConfigPath(path string) (string, error) {
	absPath, err := ValidatePath(path)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("config file must have .yaml or .yml extension, got %s", ext)
	}

	return absPath, nil
}

// ValidateInputPath validates a scrape-output file path. Scrape artifacts
// are JSON files.
func ValidateInputPath(path string) (string, error) {
	absPath, err := ValidatePath(path)
	if err != nil {
		return "", err
	}

	if strings.ToLower(filepath.Ext(absPath)) != ".json" {
		return "", fmt.Errorf("input file must have .json extension, got %s", filepath.Ext(absPath))
	}

	return absPath, nil
}
