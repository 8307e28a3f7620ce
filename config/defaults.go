package config

import "github.com/martinemde/lexdraft/drafting"

const (
	defaultConfigPath        = "~/.config/lexdraft/config.toml"
	projectConfigFile        = "lexdraft.toml"
	defaultProvider          = "groq"
	defaultTemperature       = 0.7
	defaultTopP              = 0.95
	defaultMaxTokens         = 4096
	defaultTimeoutSeconds    = 60
	defaultMaxRetries        = 3
	defaultInitialBackoffMS  = 1000
	defaultMaxBackoffMS      = 30000
	defaultBackoffMultiplier = 2.0
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
	defaultLogOutput         = "stderr"
	defaultCacheAddr         = "localhost:6379"
	defaultCacheTTLSeconds   = 86400
	defaultServerBind        = "127.0.0.1:8080"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:       defaultProvider,
			PrimaryModel:   drafting.DefaultPrimaryModel,
			FallbackModel:  drafting.DefaultFallbackModel,
			Temperature:    defaultTemperature,
			TopP:           defaultTopP,
			MaxTokens:      defaultMaxTokens,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Retry: Retry{
			MaxRetries:        defaultMaxRetries,
			InitialBackoffMS:  defaultInitialBackoffMS,
			MaxBackoffMS:      defaultMaxBackoffMS,
			BackoffMultiplier: defaultBackoffMultiplier,
		},
		Logging: Logging{
			Level:       defaultLogLevel,
			Format:      defaultLogFormat,
			OutputPaths: []string{defaultLogOutput},
		},
		Cache: Cache{
			Addr:       defaultCacheAddr,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
