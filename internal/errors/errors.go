// Package errors provides structured error handling for netsweep operations.
// It defines error codes, error types, and utilities for creating and
// inspecting errors raised by the scan executor, the sweep orchestrator,
// and the reporting pipeline.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Scanning errors.
	CodeTargetInvalid ErrorCode = "TARGET_INVALID"
	CodeEngineFailure ErrorCode = "ENGINE_FAILURE"
	CodeOutputParse   ErrorCode = "OUTPUT_PARSE"
	CodeScanFailed    ErrorCode = "SCAN_FAILED"

	// Reporting pipeline errors.
	CodeSigning ErrorCode = "SIGNING"
	CodeQueue   ErrorCode = "QUEUE"

	// File system errors.
	CodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	CodeFileCreate   ErrorCode = "FILE_CREATE"
)

// ScanError represents an error that occurred while building or running a scan.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
	}
}

// NewScanErrorWithTarget creates a scan error for a specific target.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
	}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
	}
}

// EngineError represents a nonzero exit of the external scan engine.
// It carries the exit code and the captured stderr text so the failing
// invocation can be diagnosed by the sweep caller.
type EngineError struct {
	ExitCode int
	Stderr   string
	Command  string
	Cause    error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("[%s] scan engine exited with code %d (command: %s): %s",
			CodeEngineFailure, e.ExitCode, e.Command, e.Stderr)
	}
	return fmt.Sprintf("[%s] scan engine exited with code %d: %s",
		CodeEngineFailure, e.ExitCode, e.Stderr)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewEngineError creates an engine failure error from an exit code and
// captured stderr output.
func NewEngineError(exitCode int, stderr, command string, err error) *EngineError {
	return &EngineError{
		ExitCode: exitCode,
		Stderr:   stderr,
		Command:  command,
		Cause:    err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// ReportError represents errors from the signing and queueing pipeline.
type ReportError struct {
	Code     ErrorCode
	Message  string
	ReportID string
	Cause    error
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.ReportID != "" {
		return fmt.Sprintf("[%s] %s (report: %s)", e.Code, e.Message, e.ReportID)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ReportError) Unwrap() error {
	return e.Cause
}

// WrapReportError wraps an existing error as a reporting pipeline error.
func WrapReportError(code ErrorCode, message string, err error) *ReportError {
	return &ReportError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapReportErrorWithID wraps an existing error as a reporting pipeline
// error tagged with the report it concerns.
func WrapReportErrorWithID(code ErrorCode, message, reportID string, err error) *ReportError {
	return &ReportError{
		Code:     code,
		Message:  message,
		ReportID: reportID,
		Cause:    err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *EngineError:
		return CodeEngineFailure
	case *ConfigError:
		return e.Code
	case *ReportError:
		return e.Code
	}
	return CodeUnknown
}

// Common error creation functions

// ErrInvalidTarget creates an error for invalid scan targets.
func ErrInvalidTarget(target string) *ScanError {
	return NewScanErrorWithTarget(CodeTargetInvalid, "invalid target specification", target)
}

// ErrInterfaceRequired creates the error raised when a link-local scan is
// requested without the interface it must be bound to.
func ErrInterfaceRequired(target string) *ScanError {
	return NewScanErrorWithTarget(CodeTargetInvalid,
		"link-local target requires an explicit interface", target)
}

// ErrOutputParse creates an error for unparseable engine output.
func ErrOutputParse(target string, err error) *ScanError {
	return WrapScanErrorWithTarget(CodeOutputParse, "failed to parse engine output", target, err)
}
