package openai

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

const apiURL = "https://api.openai.com/v1/chat/completions"

// Invoker implements port.ModelInvoker using the OpenAI Chat Completions API.
type Invoker struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// New creates an OpenAI-backed model invoker from a provider config.
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
		model = "gpt-4o"
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
		"model":                 p.model,
		"max_completion_tokens": maxTokens,
		"temperature":           req.Temperature,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
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
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := backend.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, backend.NewRateLimitError("openai", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

func buildContentBlocks(req port.ModelRequest) ([]map[string]interface{}, error) {
	var blocks []map[string]interface{}

	if req.MediaB64 != "" {
		dataURI := fmt.Sprintf("data:%s;base64,%s", req.MimeType, req.MediaB64)
		switch req.MimeType {
		case "application/pdf":
			blocks = append(blocks, map[string]interface{}{
				"type": "file",
				"file": map[string]interface{}{
					"filename":  "document.pdf",
					"file_data": dataURI,
				},
			})
		case "image/jpeg", "image/png":
			blocks = append(blocks, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]interface{}{
					"url": dataURI,
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

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
}

func parseResponse(body []byte, model string) (*port.ModelResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &backend.InvalidOutputError{Reason: "empty response from API: no choices"}
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, &backend.InvalidOutputError{Reason: "output truncated (finish_reason: length)"}
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return nil, &backend.InvalidOutputError{Reason: "empty message content in response"}
	}

	usedModel := resp.Model
	if usedModel == "" {
		usedModel = model
	}

	return &port.ModelResponse{
		RawText: text,
		Meta:    map[string]string{"model": usedModel, "provider": "openai"},
	}, nil
}
