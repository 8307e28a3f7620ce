package drafting

import (
	"fmt"
	"strings"

	"github.com/martinemde/lexdraft/unifiedllm"
)

// Prompt is the rendered instruction pair for one draft.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// PromptBuilder renders a validated DraftRequest.
type PromptBuilder interface {
	Build(req DraftRequest) Prompt
}

// PromptBuilderFunc adapts a function to PromptBuilder.
type PromptBuilderFunc func(req DraftRequest) Prompt

func (f PromptBuilderFunc) Build(req DraftRequest) Prompt { return f(req) }

const defaultSystemPrompt = `You are an expert legal document generator. Produce precise, legally sound documents based on the provided parameters. Format the output in markdown and use clear placeholders for dates, stamps and signatures.`

// DefaultPromptBuilder renders a plain prompt from the request fields and
// the document type registry.
type DefaultPromptBuilder struct {
	System string // overrides the built-in system prompt when set
}

func (b DefaultPromptBuilder) Build(req DraftRequest) Prompt {
	system := b.System
	if system == "" {
		system = defaultSystemPrompt
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate a detailed and legally valid %s with the following specifications:\n\n", req.DocumentType)
	sb.WriteString("Primary Parties:\n")
	fmt.Fprintf(&sb, "- Party A (First Party): %s\n", strings.TrimSpace(req.PartyA))
	fmt.Fprintf(&sb, "- Party B (Second Party): %s\n\n", strings.TrimSpace(req.PartyB))

	if info, ok := LookupDocumentType(req.DocumentType); ok {
		fmt.Fprintf(&sb, "Document Type: %s (%s)\n", info.Name, info.Category)
		fmt.Fprintf(&sb, "Description: %s\n", info.Description)
		if info.RequiresNotarization {
			sb.WriteString("This document requires notarization for full legal effect.\n")
		}
		if info.RequiresRegistration {
			sb.WriteString("This document requires registration with appropriate authorities.\n")
		}
		if info.ValidityPeriod != "" {
			fmt.Fprintf(&sb, "Typical validity period: %s\n", info.ValidityPeriod)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Additional Terms and Conditions:\n")
	sb.WriteString(req.AdditionalDetails)
	if req.State != "" {
		sb.WriteString("\nState: " + req.State)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Specific Requirements for this %s:\n", req.DocumentType)
	sb.WriteString(req.SpecificDetails)

	return Prompt{System: system, User: sb.String()}
}

// request builds the provider request for p. It is built once per call and
// only copied per endpoint.
func (p Prompt) request(provider string, params Params) unifiedllm.Request {
	temperature, topP, maxTokens := params.Temperature, params.TopP, params.MaxTokens
	return unifiedllm.Request{
		Provider: provider,
		Messages: []unifiedllm.Message{
			unifiedllm.SystemMessage(p.System),
			unifiedllm.UserMessage(p.User),
		},
		Temperature: &temperature,
		TopP:        &topP,
		MaxTokens:   &maxTokens,
	}
}
