package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProviderError("openai", "HTTP_ERROR", "HTTP request failed", 0, true, cause)

	if err.Error() != "HTTP request failed: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	same := NewProviderError("openai", "invalid_request_error", "bad input", 400, false, errors.New("bad input"))
	if same.Error() != "bad input" {
		t.Errorf("Error() = %q, want message without repetition", same.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable provider error", NewProviderError("openai", "rate_limit", "slow down", 429, true, nil), true},
		{"non retryable provider error", NewProviderError("openai", "invalid", "bad", 400, false, nil), false},
		{"wrapped provider error", fmt.Errorf("embed: %w", NewProviderError("openai", "server", "boom", 500, true, nil)), true},
		{"plain error", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsProviderError(t *testing.T) {
	if !IsProviderError(fmt.Errorf("wrap: %w", NewProviderError("openai", "x", "y", 500, false, nil))) {
		t.Error("expected wrapped provider error to be detected")
	}
	if IsProviderError(context.Canceled) {
		t.Error("context.Canceled is not a provider error")
	}
}

func TestChatResponse_Content(t *testing.T) {
	resp := &ChatResponse{
		Choices: []Choice{
			{Index: 0, Message: Message{Role: "assistant", Content: "Hello"}},
			{Index: 1, Message: Message{Role: "assistant", Content: "Other"}},
		},
	}

	content, err := resp.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != "Hello" {
		t.Errorf("Content() = %q, want Hello", content)
	}

	if _, err := (&ChatResponse{}).Content(); err == nil {
		t.Error("expected error for empty choices")
	}

	var nilResp *ChatResponse
	if _, err := nilResp.Content(); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()

	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.Headers == nil {
		t.Error("Headers should be initialized")
	}
}
