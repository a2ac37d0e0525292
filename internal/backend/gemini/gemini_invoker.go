package gemini

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

const apiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Invoker implements port.ModelInvoker using Google's Gemini API.
type Invoker struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// New creates a Gemini-backed model invoker.
func New(cfg *config.BackendProviderConfig) *Invoker {
	return newInvoker(cfg, "")
}

// NewWithEndpoint creates an invoker pointing at a custom API endpoint (for testing).
func NewWithEndpoint(cfg *config.BackendProviderConfig, endpoint string) *Invoker {
	return newInvoker(cfg, endpoint)
}

func newInvoker(cfg *config.BackendProviderConfig, endpoint string) *Invoker {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
	var parts []map[string]interface{}

	if req.MediaB64 != "" {
		mimeType, err := toGeminiMimeType(req.MimeType)
		if err != nil {
			return nil, err
		}
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]interface{}{
				"mime_type": mimeType,
				"data":      req.MediaB64,
			},
		})
	}

	parts = append(parts, map[string]interface{}{
		"text": req.Prompt,
	})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": parts,
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  maxTokens,
			"temperature":      req.Temperature,
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
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := backend.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, backend.NewRateLimitError("gemini", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

func toGeminiMimeType(contentType string) (string, error) {
	switch contentType {
	case "application/pdf", "image/jpeg", "image/png":
		return contentType, nil
	default:
		return "", fmt.Errorf("unsupported media type: %s", contentType)
	}
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte, model string) (*port.ModelResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, &backend.InvalidOutputError{Reason: "empty response from API: no candidates"}
	}

	if resp.Candidates[0].FinishReason == "MAX_TOKENS" {
		return nil, &backend.InvalidOutputError{Reason: "output truncated (finishReason: MAX_TOKENS)"}
	}

	if len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &backend.InvalidOutputError{Reason: "empty response from API: no parts"}
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, &backend.InvalidOutputError{Reason: "empty text part in response"}
	}

	return &port.ModelResponse{
		RawText: text,
		Meta:    map[string]string{"model": model, "provider": "gemini"},
	}, nil
}
