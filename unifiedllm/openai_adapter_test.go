package unifiedllm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestOpenAIAdapter(t *testing.T, handler http.HandlerFunc) *OpenAIAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIAdapter("groq", "test-key", WithBaseURL(srv.URL+"/v1"))
}

func draftRequest() Request {
	temp, topP, maxTokens := 0.7, 0.95, 4096
	return Request{
		Model:       "llama3-70b-8192",
		Messages:    []Message{SystemMessage("You are a drafter."), UserMessage("Draft a will.")},
		Temperature: &temp,
		TopP:        &topP,
		MaxTokens:   &maxTokens,
	}
}

func TestOpenAIAdapterComplete(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	adapter := newTestOpenAIAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"llama3-70b-8192",
			"choices":[{"index":0,"message":{"role":"assistant","content":"# LAST WILL"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`)
	})

	resp, err := adapter.Complete(context.Background(), draftRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "# LAST WILL" {
		t.Errorf("expected text, got %q", resp.Text())
	}
	if resp.ID != "chatcmpl-1" || resp.Provider != "groq" {
		t.Errorf("unexpected response metadata: %+v", resp)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("expected stop, got %q", resp.FinishReason.Reason)
	}

	body := <-bodies
	if body["model"] != "llama3-70b-8192" {
		t.Errorf("expected model in request body, got %v", body["model"])
	}
	if body["temperature"] != 0.7 || body["top_p"] != 0.95 {
		t.Errorf("expected sampling parameters, got temperature=%v top_p=%v", body["temperature"], body["top_p"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system message first, got %v", first["role"])
	}
}

func TestOpenAIAdapterCompleteEmptyContent(t *testing.T) {
	adapter := newTestOpenAIAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := adapter.Complete(context.Background(), draftRequest())
	ce := Classify(err)
	if ce == nil || ce.Kind != KindAPI || !ce.Retryable {
		t.Fatalf("expected retryable API error, got %v", err)
	}
}

func TestOpenAIAdapterStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusInternalServerError, KindAPI, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			adapter := newTestOpenAIAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"slow down","type":"error"}}`)
			})

			_, err := adapter.Complete(context.Background(), draftRequest())
			ce := Classify(err)
			if ce == nil {
				t.Fatal("expected error")
			}
			if ce.Kind != tt.kind || ce.Retryable != tt.retryable {
				t.Errorf("expected %s (retryable=%v), got %s (retryable=%v)", tt.kind, tt.retryable, ce.Kind, ce.Retryable)
			}
			if ce.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, ce.StatusCode)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("expected the SDK not to retry, got %d calls", n)
			}
		})
	}
}

func TestOpenAIAdapterMissingKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()
	adapter := NewOpenAIAdapter("groq", "  ", WithBaseURL(srv.URL+"/v1"))

	_, err := adapter.Complete(context.Background(), draftRequest())
	if KindOf(err) != KindAuth || IsRetryable(err) {
		t.Fatalf("expected non-retryable auth error, got %v", err)
	}
	if _, err := adapter.Stream(context.Background(), draftRequest()); KindOf(err) != KindAuth {
		t.Fatalf("expected auth error from Stream, got %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func sseChunk(content, finish string) string {
	fr := "null"
	if finish != "" {
		fr = fmt.Sprintf("%q", finish)
	}
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%q},"finish_reason":%s}]}`+"\n\n", content, fr)
}

func TestOpenAIAdapterStream(t *testing.T) {
	adapter := newTestOpenAIAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hello, ", "", "world", "!"} {
			fmt.Fprint(w, sseChunk(part, ""))
		}
		fmt.Fprint(w, sseChunk("", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	events, err := adapter.Stream(context.Background(), draftRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var deltas []string
	text, err := Aggregate(context.Background(), events, func(delta string, done bool) {
		if !done {
			deltas = append(deltas, delta)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello, world!" {
		t.Errorf("expected aggregated text, got %q", text)
	}
	if strings.Join(deltas, "|") != "Hello, ||world|!|" {
		t.Errorf("unexpected deltas %q", deltas)
	}
}

func TestOpenAIAdapterStreamContentFilter(t *testing.T) {
	adapter := newTestOpenAIAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("partial", ""))
		fmt.Fprint(w, sseChunk("", "content_filter"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	events, err := adapter.Stream(context.Background(), draftRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = Aggregate(context.Background(), events, nil)
	if KindOf(err) != KindContentFilter {
		t.Fatalf("expected content filter error, got %v", err)
	}
}

func TestGroqAdapterDefaults(t *testing.T) {
	adapter := NewGroqAdapter("key")
	if adapter.Name() != "groq" {
		t.Errorf("expected groq, got %q", adapter.Name())
	}
}

func TestNormalizeFinish(t *testing.T) {
	tests := map[string]string{
		"":               "stop",
		"stop":           "stop",
		"length":         "length",
		"content_filter": "content_filter",
		"tool_calls":     "other",
	}
	for raw, want := range tests {
		if got := normalizeFinish(raw); got != want {
			t.Errorf("normalizeFinish(%q) = %q, want %q", raw, got, want)
		}
	}
}
