// Package mock provides a deterministic ModelInvoker for development and
// tests, so the service can boot without provider credentials.
package mock

import (
	"context"

	"visara/internal/config"
	"visara/internal/port"
)

const extractionText = `{
  "fields": [
    {"name": "document_title", "value": "mock document", "confidence": {"score": 0.2, "level": null}}
  ],
  "tables": [],
  "page_confidence": {"score": 0.2, "level": null},
  "warnings": ["mock backend output; enable a real provider for multimodal reasoning"]
}`

const explanationText = `{
  "explanation": "Mock backend output (dev mode). The inspection result was produced without a real model.",
  "recommendation": "Enable a real backend provider for grounded explanations.",
  "risk_level": "medium",
  "assumptions": [],
  "limitations": ["mock backend; no model inference was performed"]
}`

// Invoker returns canned, contract-valid responses. Vision requests get an
// extraction payload, text-only requests get an explanation payload.
type Invoker struct {
	model string
}

// New creates a mock Invoker.
func New(cfg *config.BackendProviderConfig) *Invoker {
	model := cfg.DefaultModel
	if model == "" {
		model = "mock-vlm-0.1"
	}
	return &Invoker{model: model}
}

func (m *Invoker) ModelID() string { return m.model }

func (m *Invoker) Invoke(_ context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	text := explanationText
	if req.MediaB64 != "" {
		text = extractionText
	}
	return &port.ModelResponse{
		RawText: text,
		Meta:    map[string]string{"model": m.model, "version": "mock"},
	}, nil
}
