package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEXDRAFT_"

// LLM selects the provider backend and the generation parameters.
type LLM struct {
	// Provider is one of groq, openai, gemini or gollm.
	Provider string `toml:"provider" env:"PROVIDER" validate:"oneof=groq openai gemini gollm"`
	// GollmProvider names the gollm provider when Provider is gollm.
	GollmProvider  string  `toml:"gollm_provider" env:"GOLLM_PROVIDER" validate:"required_if=Provider gollm"`
	APIKey         string  `toml:"api_key" env:"API_KEY"`
	BaseURL        string  `toml:"base_url" env:"BASE_URL" validate:"omitempty,url"`
	PrimaryModel   string  `toml:"primary_model" env:"PRIMARY_MODEL" validate:"required"`
	FallbackModel  string  `toml:"fallback_model" env:"FALLBACK_MODEL"`
	Temperature    float64 `toml:"temperature" env:"TEMPERATURE" validate:"gte=0,lte=2"`
	TopP           float64 `toml:"top_p" env:"TOP_P" validate:"gt=0,lte=1"`
	MaxTokens      int     `toml:"max_tokens" env:"MAX_TOKENS" validate:"gt=0"`
	TimeoutSeconds int     `toml:"timeout_seconds" env:"TIMEOUT_SECONDS" validate:"gte=0"`
}

// Retry configures exponential backoff for model calls.
type Retry struct {
	MaxRetries        int     `toml:"max_retries" env:"MAX_RETRIES" validate:"gte=0,lte=10"`
	InitialBackoffMS  int     `toml:"initial_backoff_ms" env:"INITIAL_BACKOFF_MS" validate:"gt=0"`
	MaxBackoffMS      int     `toml:"max_backoff_ms" env:"MAX_BACKOFF_MS" validate:"gte=0"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER" validate:"gte=1"`
	Jitter            bool    `toml:"jitter" env:"JITTER"`
	// StreamMaxRetries overrides MaxRetries on the streaming path when set.
	StreamMaxRetries  *int    `toml:"stream_max_retries" env:"STREAM_MAX_RETRIES" validate:"omitempty,gte=0,lte=10"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level       string   `toml:"level" env:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string   `toml:"format" env:"FORMAT" validate:"oneof=console text json"`
	OutputPaths []string `toml:"output_paths" env:"OUTPUT_PATHS"`
}

// Cache configures the optional Redis draft cache.
type Cache struct {
	Enabled    bool   `toml:"enabled" env:"ENABLED"`
	Addr       string `toml:"addr" env:"ADDR" validate:"required_if=Enabled true"`
	Password   string `toml:"password" env:"PASSWORD"`
	DB         int    `toml:"db" env:"DB" validate:"gte=0"`
	TTLSeconds int    `toml:"ttl_seconds" env:"TTL_SECONDS" validate:"gt=0"`
}

// Server configures the HTTP API.
type Server struct {
	Bind string `toml:"bind" env:"BIND" validate:"required,hostname_port"`
}

// Config encapsulates all configuration values for lexdraft.
//
// Configuration sections:
//   - LLM: provider backend, models and sampling parameters
//   - Retry: backoff for the primary and fallback endpoints
//   - Logging: log level, format and destinations
//   - Cache: Redis draft cache
//   - Server: HTTP bind address
type Config struct {
	LLM     LLM     `toml:"llm"`
	Retry   Retry   `toml:"retry" envPrefix:"RETRY_"`
	Logging Logging `toml:"logging" envPrefix:"LOG_"`
	Cache   Cache   `toml:"cache" envPrefix:"CACHE_"`
	Server  Server  `toml:"server" envPrefix:"SERVER_"`
}

// providerKeys are the conventional per-vendor API key variables, used when
// llm.api_key and LEXDRAFT_API_KEY are both unset.
type providerKeys struct {
	Groq      string `env:"GROQ_API_KEY"`
	OpenAI    string `env:"OPENAI_API_KEY"`
	Gemini    string `env:"GEMINI_API_KEY"`
	Google    string `env:"GOOGLE_API_KEY"`
	Anthropic string `env:"ANTHROPIC_API_KEY"`
}

func (k providerKeys) forProvider(name string) string {
	switch strings.ToLower(name) {
	case "groq":
		return k.Groq
	case "openai":
		return k.OpenAI
	case "gemini", "google":
		if k.Gemini != "" {
			return k.Gemini
		}
		return k.Google
	case "anthropic":
		return k.Anthropic
	}
	return ""
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	var keys providerKeys
	if err := env.Parse(&keys); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	provider := c.LLM.Provider
	if provider == "gollm" {
		provider = c.LLM.GollmProvider
	}
	c.LLM.APIKey = keys.forProvider(provider)
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFile)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// RetryPolicy returns the blocking-path backoff policy.
func (c *Config) RetryPolicy() unifiedllm.RetryPolicy {
	return unifiedllm.RetryPolicy{
		MaxRetries:        c.Retry.MaxRetries,
		BaseDelay:         time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond,
		MaxDelay:          time.Duration(c.Retry.MaxBackoffMS) * time.Millisecond,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Jitter:            c.Retry.Jitter,
	}
}

// StreamRetryPolicy returns the streaming-path backoff policy: RetryPolicy
// with stream_max_retries as the budget when it is set.
func (c *Config) StreamRetryPolicy() unifiedllm.RetryPolicy {
	p := c.RetryPolicy()
	if c.Retry.StreamMaxRetries != nil {
		p.MaxRetries = *c.Retry.StreamMaxRetries
	}
	return p
}

// Params returns the sampling parameters.
func (c *Config) Params() drafting.Params {
	return drafting.Params{
		Temperature: c.LLM.Temperature,
		TopP:        c.LLM.TopP,
		MaxTokens:   c.LLM.MaxTokens,
	}
}

// Models returns the primary and fallback models.
func (c *Config) Models() drafting.Models {
	return drafting.Models{
		Primary:  c.LLM.PrimaryModel,
		Fallback: c.LLM.FallbackModel,
	}
}

// CallTimeout bounds a single provider call. Zero disables the bound.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// CacheTTL is the lifetime of a cached draft.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
