// Package unifiedllm provides a provider-agnostic LLM client with error
// classification, retries, model fallback and stream aggregation.
//
// # Architecture
//
// The package is layered:
//
//   - Providers: the ProviderAdapter interface and its implementations
//     (OpenAIAdapter for OpenAI-compatible APIs such as Groq, GeminiAdapter,
//     GollmAdapter)
//   - Resilience: Classify, Retry and Fallback
//   - Core client: Client with provider routing and middleware
//   - Streaming: Aggregate, which folds a StreamEvent channel into text
//
// # Quick Start
//
//	adapter := unifiedllm.NewGroqAdapter(os.Getenv("GROQ_API_KEY"))
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("groq", adapter),
//	    unifiedllm.WithCallTimeout(60*time.Second),
//	)
//
//	resp, endpoint, err := unifiedllm.Fallback(ctx, unifiedllm.FallbackConfig{
//	    PrimaryModel:  "llama3-70b-8192",
//	    FallbackModel: "llama3-8b-8192",
//	    Policy:        unifiedllm.DefaultRetryPolicy(),
//	}, func(ctx context.Context, ep unifiedllm.Endpoint) (*unifiedllm.Response, error) {
//	    return client.Complete(ctx, req.WithModel(ep.Model))
//	})
//
// # Errors
//
// Every error returned by Retry, Fallback and Aggregate is a
// *ClassifiedError. Its Kind is one of the ErrorKind constants and its
// Retryable flag decides whether Retry tries the same endpoint again.
//
//	var ce *unifiedllm.ClassifiedError
//	if errors.As(err, &ce) && ce.Kind == unifiedllm.KindAuth {
//	    // fix credentials
//	}
//
// # Streaming
//
// Adapters emit StreamStart, any number of TextDelta events and then
// either StreamFinish or StreamError. Aggregate forwards each delta to a
// ChunkFunc and signals done exactly once on success.
package unifiedllm
