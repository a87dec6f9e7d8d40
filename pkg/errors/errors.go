// Package errors provides structured error handling for codemend with
// categorization, severity levels, and contextual information so that the
// fix pipeline can decide what is retryable and what must fail the run.
package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error type
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation

	// ErrorTypeConfiguration represents configuration errors; these fail the
	// run before any workspace or oracle activity starts
	ErrorTypeConfiguration

	// ErrorTypeFileSystem represents file system errors
	ErrorTypeFileSystem

	// ErrorTypeGit represents git operation errors
	ErrorTypeGit

	// ErrorTypeWorkspace represents isolated-workspace acquisition or
	// disposal errors
	ErrorTypeWorkspace

	// ErrorTypeOracle represents fixing-oracle invocation errors
	ErrorTypeOracle

	// ErrorTypeOracleTimeout represents a fixing-oracle call that exceeded
	// its deadline
	ErrorTypeOracleTimeout

	// ErrorTypeMerge represents merge conflicts and merge failures
	ErrorTypeMerge

	// ErrorTypeDiagnosis represents diagnostics-provider failures
	ErrorTypeDiagnosis

	// ErrorTypeWorkflow represents iteration-loop execution errors
	ErrorTypeWorkflow

	// ErrorTypeProcess represents external process errors
	ErrorTypeProcess

	// ErrorTypeSystem represents system-level errors
	ErrorTypeSystem
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeFileSystem:
		return "filesystem"
	case ErrorTypeGit:
		return "git"
	case ErrorTypeWorkspace:
		return "workspace"
	case ErrorTypeOracle:
		return "oracle"
	case ErrorTypeOracleTimeout:
		return "oracle-timeout"
	case ErrorTypeMerge:
		return "merge"
	case ErrorTypeDiagnosis:
		return "diagnosis"
	case ErrorTypeWorkflow:
		return "workflow"
	case ErrorTypeProcess:
		return "process"
	case ErrorTypeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow represents low severity errors (warnings)
	SeverityLow Severity = iota

	// SeverityMedium represents medium severity errors (recoverable)
	SeverityMedium

	// SeverityHigh represents high severity errors (critical)
	SeverityHigh
)

// String returns a string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// codemendError represents a structured error with additional context
type codemendError struct {
	errorType   ErrorType
	severity    Severity
	message     string
	cause       error
	context     map[string]interface{}
	recoverable bool
}

// Error implements the error interface
func (e *codemendError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s:%s]", e.errorType.String(), e.severity.String()))
	parts = append(parts, e.message)

	if e.cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %s", e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

// Type returns the error type
func (e *codemendError) Type() ErrorType {
	return e.errorType
}

// Severity returns the error severity
func (e *codemendError) Severity() Severity {
	return e.severity
}

// Context returns the error context
func (e *codemendError) Context() map[string]interface{} {
	return e.context
}

// IsRecoverable returns whether the error is recoverable
func (e *codemendError) IsRecoverable() bool {
	return e.recoverable
}

// Unwrap returns the underlying error for compatibility with errors.Unwrap
func (e *codemendError) Unwrap() error {
	return e.cause
}

// ErrorBuilder helps construct structured errors
type ErrorBuilder struct {
	errorType   ErrorType
	severity    Severity
	message     string
	cause       error
	context     map[string]interface{}
	recoverable bool
}

// NewError creates a new error builder
func NewError(errorType ErrorType) *ErrorBuilder {
	return &ErrorBuilder{
		errorType: errorType,
		severity:  SeverityMedium,
		context:   make(map[string]interface{}),
	}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithMessagef sets the error message with formatting
func (eb *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	eb.message = fmt.Sprintf(format, args...)
	return eb
}

// WithCause sets the underlying cause of the error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// WithSeverity sets the error severity
func (eb *ErrorBuilder) WithSeverity(severity Severity) *ErrorBuilder {
	eb.severity = severity
	return eb
}

// WithContext adds context information
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRecoverable marks the error as recoverable
func (eb *ErrorBuilder) WithRecoverable(recoverable bool) *ErrorBuilder {
	eb.recoverable = recoverable
	return eb
}

// Build creates the final error
func (eb *ErrorBuilder) Build() error {
	return &codemendError{
		errorType:   eb.errorType,
		severity:    eb.severity,
		message:     eb.message,
		cause:       eb.cause,
		context:     eb.context,
		recoverable: eb.recoverable,
	}
}

// Convenience constructors for the pipeline's error kinds

// ConfigurationError creates a configuration error. Configuration errors
// fail the entire run, so they are never recoverable.
func ConfigurationError(message string) error {
	return NewError(ErrorTypeConfiguration).
		WithMessage(message).
		WithSeverity(SeverityHigh).
		Build()
}

// ValidationError creates a validation error
func ValidationError(message string) error {
	return NewError(ErrorTypeValidation).
		WithMessage(message).
		WithSeverity(SeverityLow).
		WithRecoverable(true).
		Build()
}

// GitError creates a git operation error
func GitError(operation string, cause error) error {
	return NewError(ErrorTypeGit).
		WithMessagef("git %s failed", operation).
		WithCause(cause).
		WithRecoverable(true).
		WithContext("operation", operation).
		Build()
}

// WorkspaceError creates a workspace acquisition or disposal error
func WorkspaceError(operation string, cause error) error {
	return NewError(ErrorTypeWorkspace).
		WithMessagef("workspace %s failed", operation).
		WithCause(cause).
		WithContext("operation", operation).
		Build()
}

// OracleError creates a fixing-oracle invocation error. Oracle failures are
// recoverable: the dispatcher retries them up to its attempt budget.
func OracleError(operation string, cause error) error {
	return NewError(ErrorTypeOracle).
		WithMessagef("oracle %s failed", operation).
		WithCause(cause).
		WithRecoverable(true).
		WithContext("operation", operation).
		Build()
}

// OracleTimeoutError creates an oracle deadline error, also retryable.
func OracleTimeoutError(operation string, cause error) error {
	return NewError(ErrorTypeOracleTimeout).
		WithMessagef("oracle %s timed out", operation).
		WithCause(cause).
		WithRecoverable(true).
		WithContext("operation", operation).
		Build()
}

// MergeConflictError creates a merge conflict error
func MergeConflictError(file string, cause error) error {
	return NewError(ErrorTypeMerge).
		WithMessagef("merge conflict in %s", file).
		WithCause(cause).
		WithContext("file", file).
		Build()
}

// DiagnosisUnavailableError marks a diagnostics provider that could not
// produce results for a file; the controller treats this as zero issues.
func DiagnosisUnavailableError(file string, cause error) error {
	return NewError(ErrorTypeDiagnosis).
		WithMessagef("diagnosis unavailable for %s", file).
		WithCause(cause).
		WithSeverity(SeverityLow).
		WithRecoverable(true).
		WithContext("file", file).
		Build()
}

// ProcessError creates a process execution error
func ProcessError(command string, exitCode int, cause error) error {
	return NewError(ErrorTypeProcess).
		WithMessagef("process '%s' failed with exit code %d", command, exitCode).
		WithCause(cause).
		WithRecoverable(true).
		WithContext("command", command).
		WithContext("exit_code", exitCode).
		Build()
}

// Type checking functions

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.Type() == errorType
	}
	return false
}

// IsSeverity checks if an error has a specific severity
func IsSeverity(err error, severity Severity) bool {
	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.Severity() == severity
	}
	return false
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.IsRecoverable()
	}
	return false
}

// GetContext extracts context from an error
func GetContext(err error) map[string]interface{} {
	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.Context()
	}
	return nil
}
