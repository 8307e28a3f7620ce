package unifiedllm

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqBaseURL is the OpenAI-compatible endpoint of the Groq API.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIAdapter implements ProviderAdapter for any OpenAI-compatible chat
// completions API (OpenAI, Groq, OpenRouter, ...).
type OpenAIAdapter struct {
	name   string
	client *openai.Client
	hasKey bool
}

// OpenAIAdapterOption configures an OpenAIAdapter.
type OpenAIAdapterOption func(*openAIAdapterConfig)

type openAIAdapterConfig struct {
	baseURL    string
	httpClient *http.Client
	extra      []option.RequestOption
}

// WithBaseURL points the adapter at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.httpClient = hc
	}
}

// WithRequestOptions appends raw openai-go request options.
func WithRequestOptions(opts ...option.RequestOption) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.extra = append(c.extra, opts...)
	}
}

// NewOpenAIAdapter creates an adapter registered under name. An empty
// apiKey is accepted; every call then fails with a non-retryable AuthError
// before touching the network.
func NewOpenAIAdapter(name, apiKey string, opts ...OpenAIAdapterOption) *OpenAIAdapter {
	cfg := openAIAdapterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // Retries are handled by Retry.
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	reqOpts = append(reqOpts, cfg.extra...)

	client := openai.NewClient(reqOpts...)
	return &OpenAIAdapter{
		name:   name,
		client: &client,
		hasKey: strings.TrimSpace(apiKey) != "",
	}
}

// NewGroqAdapter creates an OpenAIAdapter for the Groq API.
func NewGroqAdapter(apiKey string, opts ...OpenAIAdapterOption) *OpenAIAdapter {
	return NewOpenAIAdapter("groq", apiKey, append([]OpenAIAdapterOption{WithBaseURL(GroqBaseURL)}, opts...)...)
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// Complete sends a blocking chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if !a.hasKey {
		return nil, missingKeyError(a.name)
	}

	resp, err := a.client.Chat.Completions.New(ctx, a.params(req))
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, NewError(KindAPI, "No valid content received from "+a.name, nil)
	}

	choice := resp.Choices[0]
	id := resp.ID
	if id == "" {
		id = "resp_" + uuid.New().String()[:8]
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		ID:           id,
		Model:        model,
		Provider:     a.name,
		Message:      AssistantMessage(choice.Message.Content),
		FinishReason: FinishReason{Reason: normalizeFinish(string(choice.FinishReason)), Raw: string(choice.FinishReason)},
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Stream sends a streaming chat completion request.
func (a *OpenAIAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if !a.hasKey {
		return nil, missingKeyError(a.name)
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, a.params(req))
	ch := make(chan StreamEvent, 64)

	go func() {
		defer close(ch)
		defer stream.Close()

		if !emit(ctx, ch, StreamEvent{Type: StreamStart}) {
			return
		}

		var (
			finish = FinishReason{Reason: "stop", Raw: "stop"}
			usage  Usage
		)
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				usage = Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:  int(chunk.Usage.TotalTokens),
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			// Every choice chunk is a fragment, even one without content.
			choice := chunk.Choices[0]
			if !emit(ctx, ch, StreamEvent{Type: TextDelta, Delta: choice.Delta.Content}) {
				return
			}
			if choice.FinishReason != "" {
				finish = FinishReason{Reason: normalizeFinish(string(choice.FinishReason)), Raw: string(choice.FinishReason)}
			}
		}
		if err := stream.Err(); err != nil {
			emit(ctx, ch, StreamEvent{Type: StreamError, Error: Classify(err)})
			return
		}
		if finish.Reason == "content_filter" {
			emit(ctx, ch, StreamEvent{Type: StreamError, Error: NewError(KindContentFilter, msgContentFilter, nil)})
			return
		}
		emit(ctx, ch, StreamEvent{Type: StreamFinish, FinishReason: &finish, Usage: &usage})
	}()

	return ch, nil
}

func (a *OpenAIAdapter) params(req Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.TextContent()))
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.TextContent()))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.TextContent()))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	return params
}

func normalizeFinish(raw string) string {
	switch raw {
	case "", "stop":
		return "stop"
	case "length", "content_filter":
		return raw
	default:
		return "other"
	}
}

func missingKeyError(provider string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindAuth,
		Message: "Missing required API key for " + provider + ". Please check your environment variables.",
	}
}
