package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeStagingIO, cause, "copy %s", "lib/core/a.go")

	if err.Code != ErrCodeStagingIO {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeStagingIO)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	expected := "STAGING_IO_FAILURE: copy lib/core/a.go: disk full"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeStagingIO,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeExtraction, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeExtraction,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("unit api: %w", New(ErrCodeClosureDidNotConverge, "cycle")),
			code:     ErrCodeClosureDidNotConverge,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeConfigLoad, "bad")); got != ErrCodeConfigLoad {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeConfigLoad)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New(ErrCodeUnknownUnit, "unknown unit: %s", "api"), "unknown unit: api"},
		{"coded with cause", Wrap(ErrCodeConfigLoad, errors.New("eof"), "parse registry"), "parse registry: eof"},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUnitScoped(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeExtraction, true},
		{ErrCodeClosureDidNotConverge, true},
		{ErrCodeStagingIO, true},
		{ErrCodeConfigLoad, false},
		{ErrCodeRegistryInconsistency, false},
		{ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := IsUnitScoped(New(tt.code, "x")); got != tt.want {
				t.Errorf("IsUnitScoped(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}

	if IsUnitScoped(errors.New("plain")) {
		t.Error("IsUnitScoped(plain) = true, want false")
	}
}
