package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/martinemde/lexdraft/cache"
	"github.com/martinemde/lexdraft/config"
	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/logging"
	"github.com/martinemde/lexdraft/metrics"
	"github.com/martinemde/lexdraft/unifiedllm"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// drafter bundles a Service with the resources it owns.
type drafter struct {
	svc    *drafting.Service
	client *unifiedllm.Client
	cache  *cache.RedisCache
}

func (d *drafter) Close() error {
	var firstErr error
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.client.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// newDrafter wires the configured provider, cache and metrics into a
// drafting.Service.
func (c *commandContext) newDrafter(ctx context.Context) (*drafter, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := unifiedllm.NewClient(
		unifiedllm.WithProvider(adapter.Name(), adapter),
		unifiedllm.WithDefaultProvider(adapter.Name()),
		unifiedllm.WithCallTimeout(cfg.CallTimeout()),
	)

	opts := []drafting.Option{
		drafting.WithProvider(adapter.Name()),
		drafting.WithModels(cfg.Models()),
		drafting.WithParams(cfg.Params()),
		drafting.WithRetryPolicy(cfg.RetryPolicy()),
		drafting.WithStreamRetryPolicy(cfg.StreamRetryPolicy()),
		drafting.WithLogger(c.logger),
		drafting.WithObserver(metrics.Observe),
	}

	d := &drafter{client: client}
	if cfg.Cache.Enabled {
		d.cache = cache.NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.CacheTTL())
		opts = append(opts, drafting.WithCache(d.cache))
	}
	d.svc = drafting.NewService(client, opts...)
	return d, nil
}

func newAdapter(ctx context.Context, cfg *config.Config) (unifiedllm.ProviderAdapter, error) {
	llm := cfg.LLM
	var openAIOpts []unifiedllm.OpenAIAdapterOption
	if llm.BaseURL != "" {
		openAIOpts = append(openAIOpts, unifiedllm.WithBaseURL(llm.BaseURL))
	}

	switch llm.Provider {
	case "groq":
		return unifiedllm.NewGroqAdapter(llm.APIKey, openAIOpts...), nil
	case "openai":
		return unifiedllm.NewOpenAIAdapter("openai", llm.APIKey, openAIOpts...), nil
	case "gemini":
		a, err := unifiedllm.NewGeminiAdapter(ctx, llm.APIKey)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "gollm":
		a, err := unifiedllm.NewGollmAdapter(llm.GollmProvider, llm.APIKey,
			unifiedllm.WithModel(llm.PrimaryModel),
			unifiedllm.WithMaxTokens(llm.MaxTokens),
			unifiedllm.WithTemperature(llm.Temperature),
		)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported llm.provider %q", llm.Provider)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
