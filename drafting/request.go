package drafting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// DraftRequest is the caller's description of the document to generate.
type DraftRequest struct {
	DocumentType      string `json:"document_type" toml:"document_type" validate:"doctype"`
	PartyA            string `json:"party_a" toml:"party_a" validate:"notblank"`
	PartyB            string `json:"party_b" toml:"party_b" validate:"notblank"`
	AdditionalDetails string `json:"additional_details" toml:"additional_details" validate:"min=10"`
	SpecificDetails   string `json:"specific_details" toml:"specific_details" validate:"min=10"`
	State             string `json:"state,omitempty" toml:"state"`
}

// Params are the sampling parameters sent with every generation call.
type Params struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultParams returns temperature 0.7, top-p 0.95 and 4096 output tokens.
func DefaultParams() Params {
	return Params{Temperature: 0.7, TopP: 0.95, MaxTokens: 4096}
}

// Models names the primary and fallback model of a Service.
type Models struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
}

const (
	DefaultPrimaryModel  = "llama3-70b-8192"
	DefaultFallbackModel = "llama3-8b-8192"
)

// DefaultModels returns the Groq Llama 3 70B / 8B pair.
func DefaultModels() Models {
	return Models{Primary: DefaultPrimaryModel, Fallback: DefaultFallbackModel}
}

// CacheKey derives a stable key for a rendered prompt under the given
// models and parameters.
func CacheKey(p Prompt, m Models, params Params) string {
	payload, _ := json.Marshal(struct {
		Prompt Prompt `json:"prompt"`
		Models Models `json:"models"`
		Params Params `json:"params"`
	}{p, m, params})
	sum := sha256.Sum256(payload)
	return "lexdraft:draft:" + hex.EncodeToString(sum[:])
}
