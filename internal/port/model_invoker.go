package port

import "context"

// ModelRequest carries one invocation of a vision/language model backend.
// MediaB64 is empty for text-only requests (e.g. the grounded explainer).
type ModelRequest struct {
	Prompt      string
	MediaB64    string
	MimeType    string
	MaxTokens   int
	Temperature float64
}

// ModelResponse is the raw backend output. RawText is presumed but never
// trusted to be JSON; validation happens downstream.
type ModelResponse struct {
	RawText string
	Meta    map[string]string
}

// ModelInvoker abstracts a model backend invocation. Implementations may
// block up to the caller's deadline and may fail with a timeout-class error,
// an invalid-output-class error, or anything else.
type ModelInvoker interface {
	ModelID() string
	Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}
