package unifiedllm

import "testing"

func TestGetModelInfo(t *testing.T) {
	// By exact ID.
	info := GetModelInfo("llama3-70b-8192")
	if info == nil {
		t.Fatal("expected to find llama3-70b-8192")
	}
	if info.Provider != "groq" {
		t.Errorf("expected provider %q, got %q", "groq", info.Provider)
	}
	if info.ContextWindow != 8192 {
		t.Errorf("expected context window 8192, got %d", info.ContextWindow)
	}

	// By alias.
	info = GetModelInfo("llama3-8b")
	if info == nil {
		t.Fatal("expected to find model by alias 'llama3-8b'")
	}
	if info.ID != "llama3-8b-8192" {
		t.Errorf("expected id %q, got %q", "llama3-8b-8192", info.ID)
	}

	// Unknown model.
	info = GetModelInfo("nonexistent-model")
	if info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("expected %d models, got %d", len(Models), len(all))
	}

	groq := ListModels("groq")
	if len(groq) != 5 {
		t.Errorf("expected 5 Groq models, got %d", len(groq))
	}
	for _, m := range groq {
		if m.Provider != "groq" {
			t.Errorf("expected provider groq, got %q", m.Provider)
		}
	}

	gemini := ListModels("gemini")
	if len(gemini) != 2 {
		t.Errorf("expected 2 Gemini models, got %d", len(gemini))
	}

	empty := ListModels("nonexistent")
	if len(empty) != 0 {
		t.Errorf("expected 0 models for nonexistent provider, got %d", len(empty))
	}
}

func TestGetTierModel(t *testing.T) {
	info := GetTierModel("groq", "fallback")
	if info == nil {
		t.Fatal("expected to find a Groq fallback model")
	}
	if info.ID != "llama3-8b-8192" {
		t.Errorf("expected %q, got %q", "llama3-8b-8192", info.ID)
	}

	// The only backup model is decommissioned.
	if info := GetTierModel("groq", "backup"); info != nil {
		t.Errorf("expected no live backup model, got %q", info.ID)
	}

	if info := GetTierModel("nonexistent", ""); info != nil {
		t.Errorf("expected nil for nonexistent provider, got %v", info)
	}
}

func TestModelInfoFields(t *testing.T) {
	for _, m := range Models {
		if m.ID == "" {
			t.Error("model ID must not be empty")
		}
		if m.Provider == "" {
			t.Errorf("model %q: provider must not be empty", m.ID)
		}
		if m.DisplayName == "" {
			t.Errorf("model %q: display_name must not be empty", m.ID)
		}
		if m.ContextWindow <= 0 {
			t.Errorf("model %q: context_window must be positive", m.ID)
		}
		switch m.Tier {
		case "primary", "fallback", "backup":
		default:
			t.Errorf("model %q: unexpected tier %q", m.ID, m.Tier)
		}
	}
}
