// Package errors provides structured error handling for netsweep.
// Probe absences (dead hosts, closed ports, failed lookups) are never
// reported through these types; they only describe failures that stop or
// degrade a whole operation.
package errors

import (
	stderrors "errors"
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
	CodePermission    ErrorCode = "PERMISSION"

	// Network and scanning errors.
	CodeTargetInvalid   ErrorCode = "TARGET_INVALID"
	CodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	CodeScanFailed      ErrorCode = "SCAN_FAILED"
	CodeToolMissing     ErrorCode = "TOOL_MISSING"

	// Database errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// Output errors.
	CodeExportFailed    ErrorCode = "EXPORT_FAILED"
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"
)

// ScanError represents an error that stopped a scan or one of its stages.
type ScanError struct {
	Code      ErrorCode
	Message   string
	Target    string
	Operation string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target: %s)", e.Target)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithOperation records which step failed.
func (e *ScanError) WithOperation(op string) *ScanError {
	e.Operation = op
	return e
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		Target:  target,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation: %s)", e.Operation)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// WrapDatabaseError wraps an existing error as a database error.
func WrapDatabaseError(code ErrorCode, operation string, err error) *DatabaseError {
	return &DatabaseError{
		Code:      code,
		Message:   "database operation failed",
		Operation: operation,
		Cause:     err,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
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

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var dbErr *DatabaseError
	if stderrors.As(err, &dbErr) {
		return dbErr.Code
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error carries a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// IsFatal reports whether the error should stop the program before any probing.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeTargetInvalid, CodeConfiguration, CodeValidation, CodePermission, CodeDatabaseMigration:
		return true
	default:
		return false
	}
}

// ErrInvalidTarget creates an error for a malformed network specification.
func ErrInvalidTarget(target string, cause error) *ScanError {
	return WrapScanErrorWithTarget(CodeTargetInvalid, "invalid network specification", target, cause)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "invalid configuration value", field, value)
}
