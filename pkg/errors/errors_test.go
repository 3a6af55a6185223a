package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "resource not found")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "resource not found" {
		t.Errorf("expected message 'resource not found', got %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrapWithContext(t *testing.T) {
	cause := errors.New("namespaces is forbidden")
	ctx := map[string]any{
		"namespace": "helloworld-0a1b2c3d4e5f6a7b",
	}

	err := WrapWithContext(ErrCodeProvisioning, "failed to create namespace", cause, ctx)

	if err.Code != ErrCodeProvisioning {
		t.Errorf("expected code %s, got %s", ErrCodeProvisioning, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped")
	}
	if err.Context["namespace"] != "helloworld-0a1b2c3d4e5f6a7b" {
		t.Errorf("expected namespace in context")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrCodeNotFound, "not found"),
			expected: "[NOT_FOUND] not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeFetch, "failed to fetch script", errors.New("status 404")),
			expected: "[FETCH_FAILED] failed to fetch script: status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ErrCodeInternal},
		{"structured", New(ErrCodeDeploy, "rejected"), ErrCodeDeploy},
		{"wrapped structured", fmt.Errorf("outer: %w", New(ErrCodeObservation, "no logs")), ErrCodeObservation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := Wrap(ErrCodePromotionPartial, "partial", errors.New("service failed"))
	if !Is(err, ErrCodePromotionPartial) {
		t.Error("expected Is to match code")
	}
	if Is(err, ErrCodeDeploy) {
		t.Error("expected Is not to match a different code")
	}
	if Is(nil, ErrCodeInternal) {
		t.Error("nil error should never match")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeNotFound,
		ErrCodeUnauthorized,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeInvalidRequest,
		ErrCodeUnavailable,
		ErrCodeProvisioning,
		ErrCodeFetch,
		ErrCodeDeploy,
		ErrCodeObservation,
		ErrCodePromotionPartial,
		ErrCodeConflict,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("error code should not be empty: %v", code)
		}
		if seen[code] {
			t.Errorf("duplicate error code: %v", code)
		}
		seen[code] = true
	}
}
