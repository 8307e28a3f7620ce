package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"google.golang.org/genai"
)

type statusErr struct {
	code int
	msg  string
}

func (e *statusErr) Error() string   { return e.msg }
func (e *statusErr) StatusCode() int { return e.code }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyMessages(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		retryable bool
		status    int
	}{
		{"rate limit status text", errors.New("429 Too Many Requests"), KindRateLimit, true, 429},
		{"model keyword wins over rate limit", errors.New("Rate limit reached for model requests"), KindModel, true, 0},
		{"invalid key", errors.New("Invalid API Key provided"), KindAuth, false, 0},
		{"unauthorized", errors.New("request unauthorized"), KindAuth, false, 0},
		{"decommissioned", errors.New("The model llama3-70b-8192 has been decommissioned"), KindModel, true, 0},
		{"not found", errors.New("resource not found"), KindModel, true, 0},
		{"timed out", errors.New("upstream timed out"), KindTimeout, true, 0},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout, true, 0},
		{"deadline on a model url", &url.Error{Op: "Post", URL: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent", Err: context.DeadlineExceeded}, KindTimeout, true, 0},
		{"net timeout on a model url", &url.Error{Op: "Post", URL: "https://api.groq.com/openai/v1/models", Err: timeoutErr{}}, KindTimeout, true, 0},
		{"groq rate limit naming the model", &statusErr{429, "Rate limit reached for model llama3-70b-8192 in organization org_1"}, KindModel, true, 429},
		{"moderation", errors.New("input flagged by moderation"), KindContentFilter, false, 0},
		{"server status text", errors.New("upstream returned 503"), KindAPI, true, 503},
		{"bad request", errors.New("status 400 bad request"), KindUnknown, false, 400},
		{"unrecognized", errors.New("something odd happened"), KindUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			if ce.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", ce.Kind, tt.kind)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
			if ce.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", ce.StatusCode, tt.status)
			}
			if !errors.Is(ce, tt.err) {
				t.Error("expected classified error to unwrap to its cause")
			}
		})
	}
}

func TestClassifyStructuredStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"401 overrides message", &statusErr{401, "model access denied"}, KindAuth},
		{"403", &statusErr{403, "forbidden"}, KindAuth},
		{"429", &statusErr{429, "slow down"}, KindRateLimit},
		{"500", &statusErr{500, "boom"}, KindAPI},
		{"message rule kept over 5xx", &statusErr{502, "retry after 429 seconds"}, KindRateLimit},
		{"genai value", genai.APIError{Code: 503, Message: "unavailable"}, KindAPI},
		{"genai wrapped", fmt.Errorf("gemini: %w", genai.APIError{Code: 401}), KindAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err).Kind; got != tt.kind {
				t.Errorf("kind = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	ce := Classify(errors.New("429 Too Many Requests"))
	if again := Classify(ce); again != ce {
		t.Error("expected an already classified error to be returned unchanged")
	}
	wrapped := fmt.Errorf("outer: %w", ce)
	if again := Classify(wrapped); again != ce {
		t.Error("expected a wrapped classified error to be unwrapped")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	err := errors.New("upstream returned 502")
	a, b := Classify(err), Classify(err)
	if a.Kind != b.Kind || a.Message != b.Message || a.Retryable != b.Retryable || a.StatusCode != b.StatusCode {
		t.Errorf("expected identical classifications, got %+v and %+v", a, b)
	}
}

func TestClassifyTimeoutDoesNotFallBack(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		Err: context.DeadlineExceeded,
	}
	ce := Classify(err)
	if ce.Kind != KindTimeout {
		t.Fatalf("kind = %s, want %s", ce.Kind, KindTimeout)
	}
	if ShouldFallback(ce) {
		t.Error("a timeout must not switch to the fallback model")
	}
}

func TestClassifyCancelled(t *testing.T) {
	ce := Classify(context.Canceled)
	if ce.Kind != KindUnknown {
		t.Errorf("kind = %s, want %s", ce.Kind, KindUnknown)
	}
	if ce.Retryable {
		t.Error("cancellation must not be retryable")
	}
	if !errors.Is(ce, context.Canceled) {
		t.Error("expected cancellation to remain detectable")
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("expected nil for nil error")
	}
	if KindOf(nil) != "" {
		t.Error("expected empty kind for nil error")
	}
	if IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
}

func TestClassifiedErrorMessage(t *testing.T) {
	err := NewError(KindAPI, "No valid content received from groq", nil)
	if got := err.Error(); got != "API_ERROR: No valid content received from groq" {
		t.Errorf("unexpected message %q", got)
	}
	if !err.Retryable {
		t.Error("API errors are retryable by default")
	}

	cause := errors.New("root cause")
	err = NewError(KindValidation, "Party A information is required.", cause)
	if got := err.Error(); got != "VALIDATION_ERROR: Party A information is required.: root cause" {
		t.Errorf("unexpected message %q", got)
	}
	if err.Retryable {
		t.Error("validation errors are never retryable")
	}
}
