// Package drafting generates legal documents from a DraftRequest on top of
// the resilient unifiedllm client.
package drafting

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/martinemde/lexdraft/unifiedllm"
)

// Generator is the provider surface the Service needs. *unifiedllm.Client
// implements it.
type Generator interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
	Stream(ctx context.Context, req unifiedllm.Request) (<-chan unifiedllm.StreamEvent, error)
}

// Cache stores finished drafts keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Service is the generation façade. It is safe for concurrent use; all
// per-request state lives in the call.
type Service struct {
	gen          Generator
	provider     string
	models       Models
	params       Params
	policy       unifiedllm.RetryPolicy
	streamPolicy *unifiedllm.RetryPolicy
	prompts      PromptBuilder
	cache        Cache
	logger       *slog.Logger
	observers    []Observer
}

// Option configures a Service.
type Option func(*Service)

// WithProvider routes every call to the named provider of the Generator.
func WithProvider(name string) Option {
	return func(s *Service) { s.provider = name }
}

// WithModels sets the primary and fallback models. An empty fallback
// disables fallback.
func WithModels(m Models) Option {
	return func(s *Service) { s.models = m }
}

// WithParams sets the sampling parameters.
func WithParams(p Params) Option {
	return func(s *Service) { s.params = p }
}

// WithRetryPolicy sets the per-endpoint retry policy of the blocking path.
func WithRetryPolicy(p unifiedllm.RetryPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithStreamRetryPolicy overrides the per-endpoint retry policy of the
// streaming path. Without it streaming uses the blocking-path policy.
func WithStreamRetryPolicy(p unifiedllm.RetryPolicy) Option {
	return func(s *Service) { s.streamPolicy = &p }
}

// WithPromptBuilder replaces the DefaultPromptBuilder.
func WithPromptBuilder(b PromptBuilder) Option {
	return func(s *Service) { s.prompts = b }
}

// WithCache enables the draft cache on the blocking path.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithObserver registers observers for every request.
func WithObserver(o ...Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o...) }
}

// NewService creates a Service over gen.
func NewService(gen Generator, opts ...Option) *Service {
	s := &Service{
		gen:     gen,
		models:  DefaultModels(),
		params:  DefaultParams(),
		policy:  unifiedllm.DefaultRetryPolicy(),
		prompts: DefaultPromptBuilder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streamPolicy == nil {
		p := s.policy
		s.streamPolicy = &p
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// StreamOption configures a single StreamDocument call.
type StreamOption func(*streamOptions)

type streamOptions struct {
	onRestart func(unifiedllm.Endpoint)
	observers []Observer
}

// OnRestart is called when a new attempt starts after an earlier attempt of
// the same call already delivered text. Chunks already delivered are not
// retracted; callers typically clear their display.
func OnRestart(fn func(next unifiedllm.Endpoint)) StreamOption {
	return func(o *streamOptions) { o.onRestart = fn }
}

// ObserveStream registers observers for this call only.
func ObserveStream(observers ...Observer) StreamOption {
	return func(o *streamOptions) { o.observers = append(o.observers, observers...) }
}

// GenerateDocument validates req and returns the generated document. The
// primary model is retried on transient failures; model and API failures
// then fall back to the fallback model once. Errors are
// *unifiedllm.ClassifiedError.
func (s *Service) GenerateDocument(ctx context.Context, req DraftRequest) (string, error) {
	tr := newTracker(uuid.NewString(), ModeBlocking, s.observers)
	log := s.logger.With("request_id", tr.id, "document_type", req.DocumentType, "mode", ModeBlocking)

	prompt, err := s.prepare(tr, req)
	if err != nil {
		log.Warn("draft rejected", "error", err)
		return "", err
	}

	var key string
	if s.cache != nil {
		key = CacheKey(prompt, s.models, s.params)
		text, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("draft cache lookup failed", "error", err)
		}
		if ok && text != "" {
			log.Info("draft served from cache")
			tr.transition(StateSucceeded, func(e *Event) { e.Cached = true })
			return text, nil
		}
	}

	llmReq := prompt.request(s.provider, s.params)
	log.Info("generating draft", "primary_model", s.models.Primary, "fallback_model", s.models.Fallback)

	text, ep, err := unifiedllm.Fallback(ctx, s.fallbackConfig(tr, log, s.policy), func(ctx context.Context, ep unifiedllm.Endpoint) (string, error) {
		resp, err := s.gen.Complete(ctx, llmReq.WithModel(ep.Model))
		if err != nil {
			return "", err
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", unifiedllm.NewError(unifiedllm.KindAPI, "No valid content received from the model", nil)
		}
		return text, nil
	})
	if err != nil {
		return "", s.fail(tr, log, ep, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text); err != nil {
			log.Warn("draft cache store failed", "error", err)
		}
	}
	s.succeed(tr, log, ep, len(text))
	return text, nil
}

// StreamDocument validates req and streams the document to onChunk: each
// text fragment as onChunk(fragment, false) in arrival order, then
// onChunk("", true) exactly once on success. On failure done is never
// signalled and the partial text is discarded. It returns the full text.
func (s *Service) StreamDocument(ctx context.Context, req DraftRequest, onChunk unifiedllm.ChunkFunc, opts ...StreamOption) (string, error) {
	var so streamOptions
	for _, opt := range opts {
		opt(&so)
	}
	observers := append(append([]Observer(nil), s.observers...), so.observers...)
	tr := newTracker(uuid.NewString(), ModeStream, observers)
	log := s.logger.With("request_id", tr.id, "document_type", req.DocumentType, "mode", ModeStream)

	prompt, err := s.prepare(tr, req)
	if err != nil {
		log.Warn("draft rejected", "error", err)
		return "", err
	}

	llmReq := prompt.request(s.provider, s.params)
	log.Info("streaming draft", "primary_model", s.models.Primary, "fallback_model", s.models.Fallback)

	delivered := false
	forward := func(delta string, done bool) {
		if done {
			return
		}
		if delta != "" {
			delivered = true
		}
		if onChunk != nil {
			onChunk(delta, false)
		}
	}

	text, ep, err := unifiedllm.Fallback(ctx, s.fallbackConfig(tr, log, *s.streamPolicy), func(ctx context.Context, ep unifiedllm.Endpoint) (string, error) {
		if delivered && so.onRestart != nil {
			so.onRestart(ep)
		}
		delivered = false

		// Each attempt owns its producer; cancelling here stops it when the
		// attempt ends early.
		attemptCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, err := s.gen.Stream(attemptCtx, llmReq.WithModel(ep.Model))
		if err != nil {
			return "", err
		}
		text, err := unifiedllm.Aggregate(attemptCtx, events, forward)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", unifiedllm.NewError(unifiedllm.KindAPI, "No valid content received from the model", nil)
		}
		return text, nil
	})
	if err != nil {
		return "", s.fail(tr, log, ep, err)
	}

	if onChunk != nil {
		onChunk("", true)
	}
	s.succeed(tr, log, ep, len(text))
	return text, nil
}

// GenerateDocumentSafe never fails: on any error it logs and returns
// FallbackDocument(req).
func (s *Service) GenerateDocumentSafe(ctx context.Context, req DraftRequest) string {
	text, err := s.GenerateDocument(ctx, req)
	if err != nil {
		s.logger.Error("draft generation failed, returning placeholder document",
			"document_type", req.DocumentType,
			"kind", unifiedllm.KindOf(err),
			"error", err,
		)
		return FallbackDocument(req)
	}
	return text
}

// Models returns the configured primary and fallback models.
func (s *Service) Models() Models {
	return s.models
}

func (s *Service) prepare(tr *tracker, req DraftRequest) (Prompt, error) {
	tr.transition(StateValidating, nil)
	if err := Validate(req); err != nil {
		ce := unifiedllm.Classify(err)
		tr.transition(StateFailed, func(e *Event) { e.Err = ce })
		return Prompt{}, ce
	}
	return s.prompts.Build(req), nil
}

func (s *Service) fallbackConfig(tr *tracker, log *slog.Logger, policy unifiedllm.RetryPolicy) unifiedllm.FallbackConfig {
	onRetry := policy.OnRetry
	policy.OnRetry = func(err *unifiedllm.ClassifiedError, a unifiedllm.Attempt) {
		log.Warn("generation attempt failed, retrying",
			"endpoint", a.Endpoint.Role,
			"model", a.Endpoint.Model,
			"attempt", a.Number,
			"delay", a.Delay,
			"kind", err.Kind,
			"error", err,
		)
		tr.transition(StateRetrying, func(e *Event) {
			e.Endpoint = a.Endpoint
			e.Attempt = a.Number
			e.Delay = a.Delay
			e.Err = err
		})
		if onRetry != nil {
			onRetry(err, a)
		}
	}

	return unifiedllm.FallbackConfig{
		PrimaryModel:  s.models.Primary,
		FallbackModel: s.models.Fallback,
		Policy:        policy,
		OnAttempt: func(a unifiedllm.Attempt) {
			tr.transition(StateInvoking, func(e *Event) {
				e.Endpoint = a.Endpoint
				e.Attempt = a.Number
			})
		},
		OnFallback: func(primaryErr *unifiedllm.ClassifiedError, fb unifiedllm.Endpoint) {
			log.Info("switching to fallback model",
				"model", fb.Model,
				"kind", primaryErr.Kind,
				"error", primaryErr,
			)
			tr.transition(StateFallbackInvoking, func(e *Event) {
				e.Endpoint = fb
				e.Err = primaryErr
			})
		},
	}
}

func (s *Service) succeed(tr *tracker, log *slog.Logger, ep unifiedllm.Endpoint, size int) {
	tr.transition(StateSucceeded, func(e *Event) { e.Endpoint = ep })
	log.Info("draft generated", "endpoint", ep.Role, "model", ep.Model, "bytes", size)
}

func (s *Service) fail(tr *tracker, log *slog.Logger, ep unifiedllm.Endpoint, err error) error {
	ce := unifiedllm.Classify(err)
	tr.transition(StateFailed, func(e *Event) {
		e.Endpoint = ep
		e.Err = ce
	})
	if errors.Is(ce, context.Canceled) {
		log.Info("draft generation cancelled", "endpoint", ep.Role)
	} else {
		log.Error("draft generation failed", "endpoint", ep.Role, "model", ep.Model, "kind", ce.Kind, "error", ce)
	}
	return ce
}
