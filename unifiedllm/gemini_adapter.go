package unifiedllm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiAdapter implements ProviderAdapter using the Google Gemini API.
type GeminiAdapter struct {
	client *genai.Client
	// generate and stream are the genai entry points; replaced in tests.
	generate func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	stream   func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	hasKey   bool
}

// NewGeminiAdapter creates a Gemini adapter. An empty apiKey yields an
// adapter whose calls fail with a non-retryable AuthError.
func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &GeminiAdapter{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiAdapter{
		client:   client,
		generate: client.Models.GenerateContent,
		stream:   client.Models.GenerateContentStream,
		hasKey:   true,
	}, nil
}

// Name returns "gemini".
func (a *GeminiAdapter) Name() string {
	return "gemini"
}

// Complete sends a blocking GenerateContent request.
func (a *GeminiAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if !a.hasKey {
		return nil, missingKeyError(a.Name())
	}
	cfg, contents := geminiRequest(req)
	resp, err := a.generate(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, Classify(err)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, NewError(KindContentFilter, msgContentFilter, nil)
	}
	text := geminiText(resp)
	if text == "" {
		return nil, NewError(KindAPI, "No valid content received from gemini", nil)
	}

	finish := FinishReason{Reason: "stop", Raw: "STOP"}
	if len(resp.Candidates) > 0 {
		finish = geminiFinish(resp.Candidates[0].FinishReason)
	}
	id := resp.ResponseID
	if id == "" {
		id = "resp_" + uuid.New().String()[:8]
	}
	return &Response{
		ID:           id,
		Model:        req.Model,
		Provider:     a.Name(),
		Message:      AssistantMessage(text),
		FinishReason: finish,
		Usage:        geminiUsage(resp.UsageMetadata),
	}, nil
}

// Stream sends a GenerateContentStream request.
func (a *GeminiAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if !a.hasKey {
		return nil, missingKeyError(a.Name())
	}
	cfg, contents := geminiRequest(req)
	seq := a.stream(ctx, req.Model, contents, cfg)

	ch := make(chan StreamEvent, 64)
	go func() {
		defer close(ch)
		if !emit(ctx, ch, StreamEvent{Type: StreamStart}) {
			return
		}

		var (
			finish = FinishReason{Reason: "stop", Raw: "STOP"}
			usage  Usage
		)
		for chunk, err := range seq {
			if err != nil {
				emit(ctx, ch, StreamEvent{Type: StreamError, Error: Classify(err)})
				return
			}
			if chunk.UsageMetadata != nil {
				usage = geminiUsage(chunk.UsageMetadata)
			}
			if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != "" {
				if chunk.Candidates[0].FinishReason == genai.FinishReasonSafety {
					emit(ctx, ch, StreamEvent{Type: StreamError, Error: NewError(KindContentFilter, msgContentFilter, nil)})
					return
				}
				finish = geminiFinish(chunk.Candidates[0].FinishReason)
			}
			if !emit(ctx, ch, StreamEvent{Type: TextDelta, Delta: geminiText(chunk)}) {
				return
			}
		}
		emit(ctx, ch, StreamEvent{Type: StreamFinish, FinishReason: &finish, Usage: &usage})
	}()
	return ch, nil
}

func geminiRequest(req Request) (*genai.GenerateContentConfig, []*genai.Content) {
	cfg := &genai.GenerateContentConfig{}
	if system := req.SystemText(); system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		cfg.TopP = &p
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.TextContent(), genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.TextContent(), genai.RoleModel))
		}
	}
	return cfg, contents
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func geminiFinish(fr genai.FinishReason) FinishReason {
	switch fr {
	case genai.FinishReasonUnspecified, "", genai.FinishReasonStop:
		return FinishReason{Reason: "stop", Raw: string(fr)}
	case genai.FinishReasonMaxTokens:
		return FinishReason{Reason: "length", Raw: string(fr)}
	case genai.FinishReasonSafety:
		return FinishReason{Reason: "content_filter", Raw: string(fr)}
	default:
		return FinishReason{Reason: "other", Raw: string(fr)}
	}
}

func geminiUsage(u *genai.GenerateContentResponseUsageMetadata) Usage {
	if u == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  int(u.TotalTokenCount),
	}
}
