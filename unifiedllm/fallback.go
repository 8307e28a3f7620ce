package unifiedllm

import "context"

// EndpointRole distinguishes the two endpoints of a request.
type EndpointRole string

const (
	RolePrimary  EndpointRole = "primary"
	RoleFallback EndpointRole = "fallback"
)

// Endpoint identifies a callable model.
type Endpoint struct {
	Role  EndpointRole `json:"role"`
	Model string       `json:"model"`
}

// FallbackConfig describes the primary/fallback pair and the retry budget
// applied to each of them independently.
type FallbackConfig struct {
	PrimaryModel  string
	FallbackModel string
	Policy        RetryPolicy

	// OnAttempt is called before every call to an endpoint.
	OnAttempt func(attempt Attempt)
	// OnFallback is called once, before the fallback endpoint is invoked.
	OnFallback func(primaryErr *ClassifiedError, fallback Endpoint)
}

// ShouldFallback reports whether a primary failure warrants switching to the
// fallback model. Only model errors and retryable API errors do; rate
// limiting alone does not.
func ShouldFallback(err *ClassifiedError) bool {
	if err == nil {
		return false
	}
	return err.Kind == KindModel || (err.Kind == KindAPI && err.Retryable)
}

// Fallback runs fn against the primary endpoint under cfg.Policy and, when
// the final primary failure satisfies ShouldFallback, runs it exactly once
// more against the fallback endpoint under an independent retry budget.
// It returns the endpoint that produced the result or the last error.
func Fallback[T any](ctx context.Context, cfg FallbackConfig, fn func(ctx context.Context, ep Endpoint) (T, error)) (T, Endpoint, error) {
	primary := Endpoint{Role: RolePrimary, Model: cfg.PrimaryModel}
	result, err := runEndpoint(ctx, cfg, primary, fn)
	if err == nil {
		return result, primary, nil
	}

	var zero T
	ce := Classify(err)
	if !ShouldFallback(ce) || cfg.FallbackModel == "" || cfg.FallbackModel == cfg.PrimaryModel || ctx.Err() != nil {
		return zero, primary, ce
	}

	fallback := Endpoint{Role: RoleFallback, Model: cfg.FallbackModel}
	if cfg.OnFallback != nil {
		cfg.OnFallback(ce, fallback)
	}

	result, err = runEndpoint(ctx, cfg, fallback, fn)
	if err == nil {
		return result, fallback, nil
	}
	fe := Classify(err)
	return zero, fallback, &ClassifiedError{
		Kind:       fe.Kind,
		Message:    "Failed with fallback model: " + fe.Message,
		StatusCode: fe.StatusCode,
		Cause:      fe,
	}
}

func runEndpoint[T any](ctx context.Context, cfg FallbackConfig, ep Endpoint, fn func(ctx context.Context, ep Endpoint) (T, error)) (T, error) {
	policy := cfg.Policy
	onRetry := policy.OnRetry
	policy.OnRetry = func(err *ClassifiedError, attempt Attempt) {
		attempt.Endpoint = ep
		if onRetry != nil {
			onRetry(err, attempt)
		}
	}

	n := 0
	return Retry(ctx, policy, func(ctx context.Context) (T, error) {
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(Attempt{Endpoint: ep, Number: n})
		}
		n++
		return fn(ctx, ep)
	})
}
