package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"visara/internal/backend"
	"visara/internal/port"
	"visara/mocks"
)

func chainResponse(model string) *port.ModelResponse {
	return &port.ModelResponse{
		RawText: `{"fields": []}`,
		Meta:    map[string]string{"model": model},
	}
}

func chainRequest() port.ModelRequest {
	return port.ModelRequest{Prompt: "extract", MediaB64: "aGk=", MimeType: "image/png"}
}

func TestFallbackInvoker_FirstSucceeds(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).Return(chainResponse("claude"), nil)

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	result, err := f.Invoke(context.Background(), chainRequest())

	require.NoError(t, err)
	assert.Equal(t, "claude", result.Meta["model"])
	p2.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestFallbackInvoker_FirstFails_SecondSucceeds(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).Return(nil, errors.New("connection reset"))
	p2.On("Invoke", mock.Anything, chainRequest()).Return(chainResponse("gemini"), nil)

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	result, err := f.Invoke(context.Background(), chainRequest())

	require.NoError(t, err)
	assert.Equal(t, "gemini", result.Meta["model"])
}

func TestFallbackInvoker_RateLimitOpensCircuit(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).
		Return(nil, backend.NewRateLimitError("claude", errors.New("429"), 60)).Once()
	p2.On("Invoke", mock.Anything, chainRequest()).Return(chainResponse("gemini"), nil).Twice()

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	_, err := f.Invoke(context.Background(), chainRequest())
	require.NoError(t, err)

	// Second call must skip the rate-limited backend entirely.
	_, err = f.Invoke(context.Background(), chainRequest())
	require.NoError(t, err)
	p1.AssertNumberOfCalls(t, "Invoke", 1)
	p2.AssertNumberOfCalls(t, "Invoke", 2)
}

func TestFallbackInvoker_TimeoutPassesThrough(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).Return(nil, &backend.TimeoutError{})

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	_, err := f.Invoke(context.Background(), chainRequest())

	require.Error(t, err)
	assert.True(t, backend.IsTimeout(err))
	p2.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestFallbackInvoker_InvalidOutputPassesThrough(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).
		Return(nil, &backend.InvalidOutputError{Reason: "truncated"})

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	_, err := f.Invoke(context.Background(), chainRequest())

	require.Error(t, err)
	assert.True(t, backend.IsInvalidOutput(err))
	p2.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestFallbackInvoker_AllRateLimited(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	p1.On("Invoke", mock.Anything, chainRequest()).
		Return(nil, backend.NewRateLimitError("claude", errors.New("429"), 60))
	p2.On("Invoke", mock.Anything, chainRequest()).
		Return(nil, backend.NewRateLimitError("gemini", errors.New("429"), 30))

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	_, err := f.Invoke(context.Background(), chainRequest())

	require.Error(t, err)
	var rlErr *backend.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackInvoker_AllFailed(t *testing.T) {
	p1 := new(mocks.MockModelInvoker)
	p2 := new(mocks.MockModelInvoker)

	downstream := errors.New("upstream 500")
	p1.On("Invoke", mock.Anything, chainRequest()).Return(nil, downstream)
	p2.On("Invoke", mock.Anything, chainRequest()).Return(nil, downstream)

	f := backend.NewFallbackInvoker([]port.ModelInvoker{p1, p2}, []string{"claude", "gemini"})

	_, err := f.Invoke(context.Background(), chainRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, downstream)
	assert.False(t, backend.IsTimeout(err))
}
