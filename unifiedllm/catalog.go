package unifiedllm

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID             string   `json:"id"`
	Provider       string   `json:"provider"`
	DisplayName    string   `json:"display_name"`
	ContextWindow  int      `json:"context_window"`
	MaxOutput      *int     `json:"max_output,omitempty"`
	Tier           string   `json:"tier"` // "primary", "fallback", "backup"
	Decommissioned bool     `json:"decommissioned,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// Models is the built-in model catalog.
var Models = []ModelInfo{
	// Groq
	{
		ID: "llama3-70b-8192", Provider: "groq", DisplayName: "Llama 3 70B",
		ContextWindow: 8192, MaxOutput: intPtr(8192), Tier: "primary",
		Aliases: []string{"llama3-70b"},
	},
	{
		ID: "llama3-8b-8192", Provider: "groq", DisplayName: "Llama 3 8B",
		ContextWindow: 8192, MaxOutput: intPtr(8192), Tier: "fallback",
		Aliases: []string{"llama3-8b"},
	},
	{
		ID: "mixtral-8x7b-32768", Provider: "groq", DisplayName: "Mixtral 8x7B",
		ContextWindow: 32768, MaxOutput: intPtr(32768), Tier: "backup",
		Decommissioned: true,
		Aliases:        []string{"mixtral"},
	},
	{
		ID: "llama-3.3-70b-versatile", Provider: "groq", DisplayName: "Llama 3.3 70B Versatile",
		ContextWindow: 131072, MaxOutput: intPtr(32768), Tier: "primary",
	},
	{
		ID: "llama-3.1-8b-instant", Provider: "groq", DisplayName: "Llama 3.1 8B Instant",
		ContextWindow: 131072, MaxOutput: intPtr(131072), Tier: "fallback",
	},

	// Gemini
	{
		ID: "gemini-2.5-pro", Provider: "gemini", DisplayName: "Gemini 2.5 Pro",
		ContextWindow: 1048576, MaxOutput: intPtr(65536), Tier: "primary",
		Aliases: []string{"gemini-pro"},
	},
	{
		ID: "gemini-2.5-flash", Provider: "gemini", DisplayName: "Gemini 2.5 Flash",
		ContextWindow: 1048576, MaxOutput: intPtr(65536), Tier: "fallback",
		Aliases: []string{"gemini-flash"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetTierModel returns the first live model for a provider in the given
// tier ("primary", "fallback" or "backup"), or nil.
func GetTierModel(provider, tier string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider || Models[i].Decommissioned {
			continue
		}
		if tier == "" || Models[i].Tier == tier {
			return &Models[i]
		}
	}
	return nil
}
