package unifiedllm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter implements ProviderAdapter on top of gollm, which covers the
// providers gollm supports (groq, openai, anthropic, ollama, ...).
//
// gollm.LLM carries its model and sampling options as mutable state, so the
// adapter keeps one instance per (model, parameters) combination instead of
// reconfiguring a shared one per request.
type GollmAdapter struct {
	provider string
	cfg      gollmAdapterConfig

	mu   sync.Mutex
	llms map[string]gollm.LLM

	// newLLM builds a gollm instance; replaced in tests.
	newLLM func(opts ...gollm.ConfigOption) (gollm.LLM, error)
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates a new GollmAdapter for the given provider.
// If apiKey is empty, gollm will attempt to read it from environment variables.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := gollmAdapterConfig{
		apiKey:      apiKey,
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.model == "" {
		if info := GetTierModel(provider, "primary"); info != nil {
			cfg.model = info.ID
		}
	}
	if cfg.model == "" {
		return nil, fmt.Errorf("gollm adapter: no model configured for provider %s", provider)
	}

	a := &GollmAdapter{
		provider: provider,
		cfg:      cfg,
		llms:     make(map[string]gollm.LLM),
		newLLM:   gollm.NewLLM,
	}

	// Build the default instance eagerly so configuration errors surface at
	// startup rather than on the first request.
	if _, err := a.llmFor(Request{}); err != nil {
		return nil, err
	}
	return a, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	llm, err := a.llmFor(req)
	if err != nil {
		return nil, err
	}

	text, err := llm.Generate(ctx, a.translateRequest(req))
	if err != nil {
		return nil, Classify(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewError(KindAPI, "No valid content received from "+a.provider, nil)
	}
	return a.buildResponse(req, text), nil
}

// Stream sends a streaming request and returns a channel of StreamEvent objects.
func (a *GollmAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	llm, err := a.llmFor(req)
	if err != nil {
		return nil, err
	}
	prompt := a.translateRequest(req)

	ch := make(chan StreamEvent, 64)

	if !llm.SupportsStreaming() {
		// Generate the full response and emit it as a single delta.
		go func() {
			defer close(ch)
			if !emit(ctx, ch, StreamEvent{Type: StreamStart}) {
				return
			}
			text, err := llm.Generate(ctx, prompt)
			if err != nil {
				emit(ctx, ch, StreamEvent{Type: StreamError, Error: Classify(err)})
				return
			}
			resp := a.buildResponse(req, text)
			if emit(ctx, ch, StreamEvent{Type: TextDelta, Delta: text}) {
				emit(ctx, ch, StreamEvent{Type: StreamFinish, FinishReason: &resp.FinishReason, Usage: &resp.Usage})
			}
		}()
		return ch, nil
	}

	stream, err := llm.Stream(ctx, prompt)
	if err != nil {
		return nil, Classify(err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		if !emit(ctx, ch, StreamEvent{Type: StreamStart}) {
			return
		}

		var fullText strings.Builder
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				emit(ctx, ch, StreamEvent{Type: StreamError, Error: Classify(err)})
				return
			}
			if token == nil {
				continue
			}
			if !emit(ctx, ch, StreamEvent{Type: TextDelta, Delta: token.Text}) {
				return
			}
			fullText.WriteString(token.Text)
		}

		resp := a.buildResponse(req, fullText.String())
		emit(ctx, ch, StreamEvent{
			Type:         StreamFinish,
			FinishReason: &resp.FinishReason,
			Usage:        &resp.Usage,
		})
	}()

	return ch, nil
}

// llmFor returns the gollm instance configured for req's model and
// sampling parameters, creating it on first use.
func (a *GollmAdapter) llmFor(req Request) (gollm.LLM, error) {
	model := req.Model
	if model == "" {
		model = a.cfg.model
	}
	maxTokens := a.cfg.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	temperature := a.cfg.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	key := fmt.Sprintf("%s|%d|%g", model, maxTokens, temperature)
	if req.TopP != nil {
		key += fmt.Sprintf("|%g", *req.TopP)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if llm, ok := a.llms[key]; ok {
		return llm, nil
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(a.provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(temperature),
		gollm.SetMaxRetries(0), // Retries are handled by Retry.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if a.cfg.apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(a.cfg.apiKey))
	}
	opts = append(opts, a.cfg.extraOpts...)

	llm, err := a.newLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", a.provider, err)
	}
	if req.TopP != nil {
		llm.SetOption("top_p", *req.TopP)
	}
	a.llms[key] = llm
	return llm, nil
}

// translateRequest converts a unified Request into a gollm Prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var userParts []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			userParts = append(userParts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				userParts = append(userParts, "[Assistant]: "+text)
			}
		}
	}

	promptOpts := []gollm.PromptOption{}
	if system := strings.TrimSpace(req.SystemText()); system != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(strings.Join(userParts, "\n"), promptOpts...)
}

// buildResponse constructs a unified Response from the generated text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.cfg.model
	}
	in := estimateTokens(req)
	out := len(text) / 4
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      AssistantMessage(text),
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage: Usage{
			// gollm doesn't expose usage; estimate from text length.
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.TextContent()) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
