// Package storeio reads and writes key-material files with restrictive
// permissions: parent directories 0700, files 0600.
package storeio

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteKeyFile writes data to path, creating missing parent directories
// with owner-only permissions. Existing files are overwritten.
func WriteKeyFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storeio: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("storeio: %w", err)
	}
	return nil
}

// ReadKeyFile reads a file previously written by WriteKeyFile.
func ReadKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storeio: %w", err)
	}
	return data, nil
}
