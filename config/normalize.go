package config

import "strings"

func (c *Config) normalize() {
	c.normalizeLLM()
	c.normalizeLogging()
	c.Cache.Addr = strings.TrimSpace(c.Cache.Addr)
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.GollmProvider = strings.ToLower(strings.TrimSpace(c.LLM.GollmProvider))
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.PrimaryModel = strings.TrimSpace(c.LLM.PrimaryModel)
	c.LLM.FallbackModel = strings.TrimSpace(c.LLM.FallbackModel)
	// A fallback equal to the primary adds nothing.
	if c.LLM.FallbackModel == c.LLM.PrimaryModel {
		c.LLM.FallbackModel = ""
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	paths := c.Logging.OutputPaths[:0]
	for _, p := range c.Logging.OutputPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		paths = []string{defaultLogOutput}
	}
	c.Logging.OutputPaths = paths
}
