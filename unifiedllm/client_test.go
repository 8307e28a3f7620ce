package unifiedllm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockAdapter is a test double for ProviderAdapter.
type mockAdapter struct {
	name     string
	response *Response
	err      error
	events   []StreamEvent

	mu     sync.Mutex
	models []string
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.models = append(m.models, req.Model)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	m.mu.Lock()
	m.models = append(m.models, req.Model)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan StreamEvent, len(m.events))
	for _, e := range m.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func newMockAdapter(name, text string) *mockAdapter {
	return &mockAdapter{
		name: name,
		response: &Response{
			ID:           "test_resp",
			Model:        "test-model",
			Provider:     name,
			Message:      AssistantMessage(text),
			FinishReason: FinishReason{Reason: "stop"},
			Usage:        Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		},
	}
}

// slowAdapter blocks until the context is done.
type slowAdapter struct{}

func (slowAdapter) Name() string { return "slow" }

func (slowAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		if !emit(ctx, ch, StreamEvent{Type: TextDelta, Delta: "partial"}) {
			return
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func TestClientComplete(t *testing.T) {
	mock := newMockAdapter("groq", "Hello!")
	client := NewClient(
		WithProvider("groq", mock),
		WithDefaultProvider("groq"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "llama3-70b-8192",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if resp.Provider != "groq" {
		t.Errorf("expected provider %q, got %q", "groq", resp.Provider)
	}
}

func TestClientProviderRouting(t *testing.T) {
	groq := newMockAdapter("groq", "Groq response")
	gemini := newMockAdapter("gemini", "Gemini response")

	client := NewClient(
		WithProvider("groq", groq),
		WithProvider("gemini", gemini),
		WithDefaultProvider("groq"),
	)

	// Explicit provider.
	resp, err := client.Complete(context.Background(), Request{
		Model:    "gemini-2.5-pro",
		Messages: []Message{UserMessage("Hi")},
		Provider: "gemini",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Gemini response" {
		t.Errorf("expected Gemini response, got %q", resp.Text())
	}

	// Default provider.
	resp, err = client.Complete(context.Background(), Request{
		Model:    "llama3-70b-8192",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Groq response" {
		t.Errorf("expected Groq response, got %q", resp.Text())
	}
}

func TestClientInfersProviderFromCatalog(t *testing.T) {
	gemini := newMockAdapter("gemini", "Gemini response")
	groq := newMockAdapter("groq", "Groq response")
	client := &Client{providers: map[string]ProviderAdapter{"gemini": gemini, "groq": groq}}

	resp, err := client.Complete(context.Background(), Request{
		Model:    "gemini-flash",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Gemini response" {
		t.Errorf("expected Gemini response, got %q", resp.Text())
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err == nil {
		t.Fatal("expected error for no provider")
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ClassifiedError, got %T", err)
	}
	if ce.Retryable {
		t.Error("configuration errors must not be retryable")
	}
}

func TestClientUnregisteredProvider(t *testing.T) {
	client := NewClient(WithProvider("groq", newMockAdapter("groq", "x")))
	_, err := client.Stream(context.Background(), Request{Provider: "gemini"})
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestClientMiddleware(t *testing.T) {
	mock := newMockAdapter("test", "response")
	called := false

	mw := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		called = true
		return next(ctx, req)
	}

	client := NewClient(
		WithProvider("test", mock),
		WithMiddleware(mw),
	)

	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("middleware was not called")
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	mock := newMockAdapter("test", "response")
	var order []int

	mw1 := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		order = append(order, 1)
		resp, err := next(ctx, req)
		order = append(order, -1)
		return resp, err
	}
	mw2 := func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		order = append(order, 2)
		resp, err := next(ctx, req)
		order = append(order, -2)
		return resp, err
	}

	client := NewClient(
		WithProvider("test", mock),
		WithMiddleware(mw1, mw2),
	)

	_, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Onion pattern: first registered runs first for request, reverse for response.
	expected := []int{1, 2, -2, -1}
	if len(order) != len(expected) {
		t.Fatalf("expected %d middleware calls, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("position %d: expected %d, got %d", i, v, order[i])
		}
	}
}

func TestClientStream(t *testing.T) {
	mock := &mockAdapter{
		name: "test",
		events: []StreamEvent{
			{Type: StreamStart},
			{Type: TextDelta, Delta: "Hello"},
			{Type: TextDelta, Delta: " world"},
			{Type: StreamFinish, FinishReason: &FinishReason{Reason: "stop"}},
		},
	}

	client := NewClient(WithProvider("test", mock))
	ch, err := client.Stream(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var events []StreamEvent
	for event := range ch {
		events = append(events, event)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Type != StreamStart {
		t.Errorf("expected StreamStart, got %q", events[0].Type)
	}
	if events[1].Delta != "Hello" {
		t.Errorf("expected delta %q, got %q", "Hello", events[1].Delta)
	}
}

func TestClientRegisterProvider(t *testing.T) {
	client := NewClient()
	mock := newMockAdapter("dynamic", "dynamic response")
	client.RegisterProvider("dynamic", mock)

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "dynamic response" {
		t.Errorf("expected %q, got %q", "dynamic response", resp.Text())
	}
}

func TestClientAutoSingleProviderDefault(t *testing.T) {
	mock := newMockAdapter("only", "only response")
	client := NewClient(WithProvider("only", mock))

	resp, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "only response" {
		t.Errorf("expected %q, got %q", "only response", resp.Text())
	}
}

func TestClientCallTimeout(t *testing.T) {
	client := NewClient(
		WithProvider("slow", slowAdapter{}),
		WithCallTimeout(20*time.Millisecond),
	)

	_, err := client.Complete(context.Background(), Request{Model: "m"})
	if KindOf(err) != KindTimeout {
		t.Errorf("expected %s, got %v", KindTimeout, err)
	}
}

func TestClientStreamTimeout(t *testing.T) {
	client := NewClient(
		WithProvider("slow", slowAdapter{}),
		WithCallTimeout(20*time.Millisecond),
	)

	ch, err := client.Stream(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := Aggregate(context.Background(), ch, nil)
	if text != "" {
		t.Errorf("expected partial text to be discarded, got %q", text)
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("expected %s, got %v", KindTimeout, err)
	}
}

func TestClientCloseWithoutClosers(t *testing.T) {
	client := NewClient(WithProvider("groq", newMockAdapter("groq", "x")))
	if err := client.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
