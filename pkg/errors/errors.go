package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Privilege errors
	ErrPrivilegeRequired = errors.New("elevated privileges required")

	// State guard errors
	ErrNotCaptured     = errors.New("settings not captured")
	ErrAlreadyCaptured = errors.New("settings already captured")
	ErrUnknownSetting  = errors.New("unknown setting")

	// Storage errors
	ErrRunNotFound = errors.New("run not found")
)

// SettingError represents a failure while reading or mutating a single
// host network setting.
type SettingError struct {
	Setting string
	Op      string // "read", "apply", "restore"
	Err     error
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("setting '%s': %s failed: %v", e.Setting, e.Op, e.Err)
}

func (e *SettingError) Unwrap() error {
	return e.Err
}

// ExperimentError represents a failure during a single experiment step.
type ExperimentError struct {
	Experiment string
	Err        error
}

func (e *ExperimentError) Error() string {
	return fmt.Sprintf("experiment '%s': %v", e.Experiment, e.Err)
}

func (e *ExperimentError) Unwrap() error {
	return e.Err
}
