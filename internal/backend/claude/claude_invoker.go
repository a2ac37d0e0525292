package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"visara/internal/backend"
	"visara/internal/config"
	"visara/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Invoker implements port.ModelInvoker using the Anthropic Messages API.
type Invoker struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// New creates a Claude-backed model invoker from a provider config.
func New(cfg *config.BackendProviderConfig) *Invoker {
	return newInvoker(cfg, apiURL)
}

// NewWithEndpoint creates an invoker pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.BackendProviderConfig, endpoint string) *Invoker {
	return newInvoker(cfg, endpoint)
}

func newInvoker(cfg *config.BackendProviderConfig, endpoint string) *Invoker {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Invoker{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Invoker) ModelID() string { return p.model }

func (p *Invoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	contentBlocks, err := buildContentBlocks(req)
	if err != nil {
		return nil, fmt.Errorf("building content blocks: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	reqBody := map[string]interface{}{
		"model":       p.model,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := backend.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, backend.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

func buildContentBlocks(req port.ModelRequest) ([]map[string]interface{}, error) {
	var blocks []map[string]interface{}

	if req.MediaB64 != "" {
		switch req.MimeType {
		case "application/pdf":
			blocks = append(blocks, map[string]interface{}{
				"type": "document",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": "application/pdf",
					"data":       req.MediaB64,
				},
			})
		case "image/jpeg", "image/png":
			blocks = append(blocks, map[string]interface{}{
				"type": "image",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": req.MimeType,
					"data":       req.MediaB64,
				},
			})
		default:
			return nil, fmt.Errorf("unsupported media type: %s", req.MimeType)
		}
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": req.Prompt,
	})

	return blocks, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Model      string `json:"model"`
}

func parseResponse(body []byte, model string) (*port.ModelResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, &backend.InvalidOutputError{Reason: "empty response from API"}
	}

	if resp.StopReason == "max_tokens" {
		return nil, &backend.InvalidOutputError{Reason: "output truncated (stop_reason: max_tokens)"}
	}

	text := resp.Content[0].Text
	if text == "" {
		return nil, &backend.InvalidOutputError{Reason: "empty text block in response"}
	}

	usedModel := resp.Model
	if usedModel == "" {
		usedModel = model
	}

	return &port.ModelResponse{
		RawText: text,
		Meta:    map[string]string{"model": usedModel, "provider": "claude"},
	}, nil
}
