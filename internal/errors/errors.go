// Package errors provides structured error types for ndxbench.
// All errors include a category, code, message, and retryable flag so the
// CLI can report which part of a run failed.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryDialect    ErrorCategory = "DIALECT"
	ErrCategoryQuery      ErrorCategory = "QUERY"
	ErrCategoryBackend    ErrorCategory = "BACKEND"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidRunParams = "INVALID_RUN_PARAMS"

	// Dialect codes
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"

	// Query codes
	CodeUnrecognizedPairing = "UNRECOGNIZED_PAIRING"

	// Backend codes
	CodeConnectFailed   = "CONNECT_FAILED"
	CodeExecutionFailed = "EXECUTION_FAILED"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
	CodeObjectExists   = "OBJECT_EXISTS"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// BenchError is the structured error type used throughout the harness.
type BenchError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// isRetryable is true only for object storage transfers. Backend failures
// abort the run.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is matching on category and code.
var (
	ErrUnsupportedOperation = New(ErrCategoryDialect, CodeUnsupportedOperation, "unsupported operation")
	ErrUnrecognizedPairing  = New(ErrCategoryQuery, CodeUnrecognizedPairing, "unrecognized type pairing")
	ErrExecutionFailed      = New(ErrCategoryBackend, CodeExecutionFailed, "statement failed")
)

// Convenience constructors for common errors.

func NewValidationError(code, message string) *BenchError {
	return New(ErrCategoryValidation, code, message)
}

func NewUnsupportedError(message string) *BenchError {
	return New(ErrCategoryDialect, CodeUnsupportedOperation, message)
}

func NewPairingError(message string) *BenchError {
	return New(ErrCategoryQuery, CodeUnrecognizedPairing, message)
}

func NewBackendError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryBackend, code, message, cause)
}

func NewStorageError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
