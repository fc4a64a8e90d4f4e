package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestScanError(t *testing.T) {
	t.Run("message without target", func(t *testing.T) {
		err := NewScanError(CodeScanFailed, "scan failed")
		expected := "[SCAN_FAILED] scan failed"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
	})

	t.Run("message with target and cause", func(t *testing.T) {
		cause := fmt.Errorf("bad mask")
		err := WrapScanErrorWithTarget(CodeTargetInvalid, "invalid network", "10.0.0.0/33", cause)
		expected := "[TARGET_INVALID] invalid network (target: 10.0.0.0/33): bad mask"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("Should unwrap to original error")
		}
	})

	t.Run("context and operation", func(t *testing.T) {
		err := NewScanError(CodeCanceled, "interrupted").
			WithOperation("enumeration").
			WithContext("hosts_done", 3)
		if err.Operation != "enumeration" {
			t.Errorf("Expected operation 'enumeration', got '%s'", err.Operation)
		}
		if err.Context["hosts_done"] != 3 {
			t.Errorf("Expected hosts_done 3, got %v", err.Context["hosts_done"])
		}
	})
}

func TestDatabaseError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapDatabaseError(CodeDatabaseConnection, "connect", cause)
	expected := "[DATABASE_CONNECTION] database operation failed (operation: connect): connection refused"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Should unwrap to original error")
	}
}

func TestConfigError(t *testing.T) {
	err := ErrConfigInvalid("scanning.max_candidates", 0)
	expected := "[VALIDATION] invalid configuration value (field: scanning.max_candidates)"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}

	wrapped := WrapConfigError(CodeConfiguration, "failed to read config", fmt.Errorf("eof"))
	if wrapped.Error() != "[CONFIGURATION] failed to read config: eof" {
		t.Errorf("Unexpected message '%s'", wrapped.Error())
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"scan error", NewScanError(CodeScanFailed, "x"), CodeScanFailed},
		{"database error", WrapDatabaseError(CodeDatabaseQuery, "insert", nil), CodeDatabaseQuery},
		{"config error", ErrConfigInvalid("f", 1), CodeValidation},
		{"wrapped with fmt", fmt.Errorf("outer: %w", ErrInvalidTarget("x", nil)), CodeTargetInvalid},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := ErrInvalidTarget("not-a-network", nil)
	if !IsCode(err, CodeTargetInvalid) {
		t.Error("Expected TARGET_INVALID")
	}
	if IsCode(err, CodeTimeout) {
		t.Error("Did not expect TIMEOUT")
	}
	if IsCode(nil, CodeUnknown) {
		t.Error("nil error should not match any code")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidTarget("x", nil)) {
		t.Error("invalid target should be fatal")
	}
	if !IsFatal(ErrConfigInvalid("f", 1)) {
		t.Error("invalid config should be fatal")
	}
	if IsFatal(NewScanError(CodeCanceled, "interrupted")) {
		t.Error("cancellation should not be fatal")
	}
	if IsFatal(WrapDatabaseError(CodeDatabaseQuery, "insert", nil)) {
		t.Error("query failure should not be fatal")
	}
}
