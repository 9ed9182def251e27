// Package errors defines the structured error types shared across the check.
package errors

import "fmt"

// ConfigurationError reports a precondition failure detected before any
// evaluator runs: a threshold outside its valid range or a mount point that
// is missing or not a btrfs filesystem.
type ConfigurationError struct {
	Field  string // configuration field or argument that failed validation
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SnapshotError reports a failed filesystem snapshot acquisition. It is fatal
// to the whole run: no verdict is produced and the process exits outside the
// severity range.
type SnapshotError struct {
	Op  string // acquisition step that failed (e.g. "btrfs filesystem usage")
	Err error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}
