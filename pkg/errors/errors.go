// Package errors defines the sentinel errors shared across bucketd and
// helpers for wrapping them with context.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")

	// Request errors.
	ErrEmptyBucket = fmt.Errorf("bucket must name at least one package")

	// Resolution errors.
	ErrPackageNotFound   = fmt.Errorf("package not found in catalog")
	ErrPackageConflict   = fmt.Errorf("package conflicts with another package")
	ErrVersionConstraint = fmt.Errorf("no version satisfies constraint")

	// Backend errors.
	ErrBackendUnavailable = fmt.Errorf("package backend unavailable")
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrFileHashMismatch   = fmt.Errorf("file hash mismatch")
	ErrInvalidPath        = fmt.Errorf("invalid path")
	ErrPackageInvalid     = fmt.Errorf("package archive invalid")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
