// Package config loads, normalizes, and validates lexdraft configuration.
//
// Defaults come from Default, a TOML file overrides them, and LEXDRAFT_*
// environment variables override the file. When no API key is configured the
// vendor variable for the selected provider (GROQ_API_KEY, OPENAI_API_KEY,
// GEMINI_API_KEY) is used. A missing key is not a configuration error: the
// provider reports it on the first call.
package config
