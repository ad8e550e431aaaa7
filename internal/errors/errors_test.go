package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBenchError_Error(t *testing.T) {
	err := New(ErrCategoryDialect, CodeUnsupportedOperation, "spatial index")
	expected := "[DIALECT:UNSUPPORTED_OPERATION] spatial index"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("syntax error at or near \"selec\"")
	err := Wrap(ErrCategoryBackend, CodeExecutionFailed, "time query", cause)
	expected := "[BACKEND:EXECUTION_FAILED] time query: syntax error at or near \"selec\""
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewBackendError(CodeConnectFailed, "ping", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestBenchError_Is(t *testing.T) {
	err1 := NewPairingError("integer/text")
	err2 := NewPairingError("point/integer")
	err3 := NewUnsupportedError("spatial index")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
	if !errors.Is(err1, ErrUnrecognizedPairing) {
		t.Error("pairing error should match the sentinel")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", err3), ErrUnsupportedOperation) {
		t.Error("wrapped unsupported error should match the sentinel")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryBackend, CodeExecutionFailed, false},
		{ErrCategoryBackend, CodeConnectFailed, false},
		{ErrCategoryDialect, CodeUnsupportedOperation, false},
		{ErrCategoryQuery, CodeUnrecognizedPairing, false},
		{ErrCategoryValidation, CodeInvalidConfig, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := NewBackendError(CodeExecutionFailed, "bad sql", nil)
	if GetCategory(err) != ErrCategoryBackend {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryBackend)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := NewValidationError(CodeInvalidRunParams, "num_points must be positive")
	if GetCode(err) != CodeInvalidRunParams {
		t.Errorf("got %q, want %q", GetCode(err), CodeInvalidRunParams)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-BenchError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewBackendError(CodeExecutionFailed, "bulk load", nil)
	detailed := err.WithDetails(map[string]interface{}{"table": "int_test"})

	if detailed.Details["table"] != "int_test" {
		t.Error("WithDetails should set details")
	}
	// Original should be unmodified
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	v := NewValidationError(CodeInvalidConfig, "no backend")
	if v.Category != ErrCategoryValidation || v.Code != CodeInvalidConfig {
		t.Error("NewValidationError mismatch")
	}

	u := NewUnsupportedError("spatial index on sqlite")
	if u.Category != ErrCategoryDialect || u.Code != CodeUnsupportedOperation {
		t.Error("NewUnsupportedError mismatch")
	}

	p := NewPairingError("text/integer")
	if p.Category != ErrCategoryQuery || p.Code != CodeUnrecognizedPairing {
		t.Error("NewPairingError mismatch")
	}

	b := NewBackendError(CodeExecutionFailed, "insert", cause)
	if b.Category != ErrCategoryBackend || !errors.Is(b, cause) {
		t.Error("NewBackendError mismatch")
	}

	s := NewStorageError(CodeUploadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !s.Retryable {
		t.Error("NewStorageError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
