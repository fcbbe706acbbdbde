package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestToolErrorType_IsRetryable(t *testing.T) {
	tests := []struct {
		typ  ToolErrorType
		want bool
	}{
		{ToolErrorTimeout, true},
		{ToolErrorNetwork, true},
		{ToolErrorRateLimit, true},
		{ToolErrorNotFound, false},
		{ToolErrorInvalidInput, false},
		{ToolErrorPermission, false},
		{ToolErrorExecution, false},
		{ToolErrorPanic, false},
		{ToolErrorUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := tt.typ.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToolError_Error(t *testing.T) {
	err := NewToolError("test_tool", errors.New("connection refused")).
		WithType(ToolErrorNetwork).
		WithToolCallID("call-123").
		WithAttempts(3)

	errStr := err.Error()
	if errStr == "" {
		t.Error("error string should not be empty")
	}

	// Should contain key information
	tests := []string{"tool:network", "test_tool", "attempts=3"}
	for _, want := range tests {
		if !contains(errStr, want) {
			t.Errorf("error string %q should contain %q", errStr, want)
		}
	}
}

func TestNewToolError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		wantType ToolErrorType
	}{
		{"timeout", "context deadline exceeded", ToolErrorTimeout},
		{"network", "connection refused", ToolErrorNetwork},
		{"rate_limit", "rate limit exceeded", ToolErrorRateLimit},
		{"permission", "permission denied", ToolErrorPermission},
		{"invalid", "invalid input parameter", ToolErrorInvalidInput},
		{"unknown", "some random error", ToolErrorExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewToolError("tool", errors.New(tt.errMsg))
			if err.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", err.Type, tt.wantType)
			}
		})
	}
}

func TestToolError_Unwrap(t *testing.T) {
	cause := errors.New("underlying cause")
	err := NewToolError("tool", cause)

	if !errors.Is(err, cause) {
		t.Error("should unwrap to underlying cause")
	}
}

func TestIsToolError(t *testing.T) {
	toolErr := NewToolError("tool", errors.New("test"))
	regularErr := errors.New("regular error")

	if !IsToolError(toolErr) {
		t.Error("should recognize ToolError")
	}
	if IsToolError(regularErr) {
		t.Error("should not recognize regular error as ToolError")
	}
}

func TestGetToolError(t *testing.T) {
	toolErr := NewToolError("tool", errors.New("test"))

	got, ok := GetToolError(toolErr)
	if !ok {
		t.Fatal("should extract ToolError")
	}
	if got.ToolName != "tool" {
		t.Errorf("ToolName = %q, want %q", got.ToolName, "tool")
	}
}

func TestIsToolRetryable(t *testing.T) {
	retryable := NewToolError("tool", errors.New("timeout")).WithType(ToolErrorTimeout)
	nonRetryable := NewToolError("tool", errors.New("invalid")).WithType(ToolErrorInvalidInput)

	if !IsToolRetryable(retryable) {
		t.Error("timeout error should be retryable")
	}
	if IsToolRetryable(nonRetryable) {
		t.Error("invalid input error should not be retryable")
	}

	// Test with raw errors
	if !IsToolRetryable(errors.New("connection timeout")) {
		t.Error("raw timeout error should be retryable")
	}
}

func TestRunErrorWrapsToolRetryability(t *testing.T) {
	cause := NewToolError("bash", errors.New("connection refused")).WithType(ToolErrorNetwork)
	runErr := NewRunError(cause)

	if !runErr.Retryable {
		t.Error("expected network tool error to produce a retryable run error")
	}
	if !errors.Is(runErr, cause) {
		t.Error("should unwrap to cause")
	}
}

func TestRunErrorNonRetryableByDefault(t *testing.T) {
	runErr := NewRunError(errors.New("malformed response"))
	if runErr.Retryable {
		t.Error("expected a plain error to produce a non-retryable run error")
	}
	if !IsRunRetryable(NewRunError(ErrToolTimeout)) {
		t.Error("expected a timeout-derived run error to be retryable")
	}
}

func TestNewRunErrorClassifiesProviderStatusErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate_limited", fmt.Errorf("http 429: too many requests"), true},
		{"bad_gateway", fmt.Errorf("http 502: upstream unavailable"), true},
		{"service_unavailable", fmt.Errorf("http 503: try again"), true},
		{"gateway_timeout", fmt.Errorf("http 504: timed out"), true},
		{"server_error", fmt.Errorf("http 500: internal error"), true},
		{"bad_request", fmt.Errorf("http 400: invalid request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRunError(tt.err).Retryable; got != tt.want {
				t.Errorf("Retryable = %v, want %v for %q", got, tt.want, tt.err)
			}
		})
	}
}

func TestNewRunErrorClassifiesContextErrors(t *testing.T) {
	deadlineErr := fmt.Errorf("%w: %w", ErrContextCancelled, context.DeadlineExceeded)
	if !NewRunError(deadlineErr).Retryable {
		t.Error("a deadline-exceeded run error should be retryable")
	}

	cancelErr := fmt.Errorf("%w: %w", ErrContextCancelled, context.Canceled)
	if NewRunError(cancelErr).Retryable {
		t.Error("an explicitly cancelled run error should not be retryable")
	}
}

func TestNewRunErrorLoopControlErrorsNonRetryable(t *testing.T) {
	roundLimit := fmt.Errorf("%w: stopped after 50 tool rounds", ErrToolRoundLimit)
	if NewRunError(roundLimit).Retryable {
		t.Error("a tool-round-limit error should not be retryable")
	}

	repetitive := fmt.Errorf("%w: same call 3 times", ErrRepetitiveToolCall)
	if NewRunError(repetitive).Retryable {
		t.Error("a repetitive-tool-call error should not be retryable")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrToolRoundLimit,
		ErrContextCancelled,
		ErrNoProvider,
		ErrToolNotFound,
		ErrToolTimeout,
		ErrToolPanic,
		ErrRepetitiveToolCall,
	}

	for _, err := range sentinels {
		if err == nil {
			t.Error("sentinel error should not be nil")
		}
		if err.Error() == "" {
			t.Errorf("sentinel %v should have message", err)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsAt(s, substr))
}

func containsAt(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
