package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeUnknown,
		CodeValidation,
		CodeConfiguration,
		CodeTimeout,
		CodeCanceled,
		CodeTargetInvalid,
		CodeEngineFailure,
		CodeOutputParse,
		CodeScanFailed,
		CodeSigning,
		CodeQueue,
		CodeFileNotFound,
		CodeFileCreate,
	}

	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("Error code %v should not be empty", code)
		}
	}
}

func TestScanError(t *testing.T) {
	t.Run("error with target", func(t *testing.T) {
		err := NewScanErrorWithTarget(CodeTargetInvalid, "bad target", "192.168.1.1")
		if err.Target != "192.168.1.1" {
			t.Errorf("Expected target '192.168.1.1', got '%s'", err.Target)
		}
		expected := "[TARGET_INVALID] bad target (target: 192.168.1.1)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error without target", func(t *testing.T) {
		err := NewScanError(CodeValidation, "validation failed")
		expected := "[VALIDATION] validation failed"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error unwrapping", func(t *testing.T) {
		cause := fmt.Errorf("underlying failure")
		err := WrapScanError(CodeOutputParse, "parse failed", cause)
		if !errors.Is(err, cause) {
			t.Error("Wrapped error should unwrap to its cause")
		}
	})
}

func TestEngineError(t *testing.T) {
	err := NewEngineError(1, "route to host lost", "nmap -sn -R -PR 10.0.0.0/24", nil)

	if err.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", err.ExitCode)
	}
	msg := err.Error()
	if !strings.Contains(msg, "exited with code 1") {
		t.Errorf("Error message should include the exit code, got %q", msg)
	}
	if !strings.Contains(msg, "route to host lost") {
		t.Errorf("Error message should include stderr text, got %q", msg)
	}
	if !strings.Contains(msg, "nmap -sn -R -PR 10.0.0.0/24") {
		t.Errorf("Error message should include the failing command, got %q", msg)
	}
	if GetCode(err) != CodeEngineFailure {
		t.Errorf("Expected code %s, got %s", CodeEngineFailure, GetCode(err))
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigFieldError(CodeConfiguration, "required field missing", "report.queue_dir")
	expected := "[CONFIGURATION] required field missing (field: report.queue_dir)"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"scan error", NewScanError(CodeScanFailed, "x"), CodeScanFailed},
		{"engine error", NewEngineError(2, "boom", "", nil), CodeEngineFailure},
		{"config error", NewConfigError(CodeConfiguration, "x"), CodeConfiguration},
		{"report error", WrapReportError(CodeQueue, "x", nil), CodeQueue},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %s, want %s", got, tt.want)
			}
			if !IsCode(tt.err, tt.want) {
				t.Errorf("IsCode() should be true for %s", tt.want)
			}
		})
	}
}

func TestErrInterfaceRequired(t *testing.T) {
	err := ErrInterfaceRequired("fe80::1")
	if !IsCode(err, CodeTargetInvalid) {
		t.Errorf("Expected code %s, got %s", CodeTargetInvalid, GetCode(err))
	}
	if err.Target != "fe80::1" {
		t.Errorf("Expected target fe80::1, got %s", err.Target)
	}
}
