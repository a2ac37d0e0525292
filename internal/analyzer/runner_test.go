package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visara/internal/backend"
	"visara/internal/port"
)

// scriptedInvoker replays a fixed sequence of responses, one per attempt.
type scriptedInvoker struct {
	script   []func(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error)
	requests []port.ModelRequest
}

func (s *scriptedInvoker) ModelID() string { return "scripted" }

func (s *scriptedInvoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	s.requests = append(s.requests, req)
	step := s.script[len(s.requests)-1]
	return step(ctx, req)
}

func ok(text string) func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
	return func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
		return &port.ModelResponse{RawText: text, Meta: map[string]string{"model": "scripted"}}, nil
	}
}

func fail(err error) func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
	return func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
		return nil, err
	}
}

func hang() func(context.Context, port.ModelRequest) (*port.ModelResponse, error) {
	return func(ctx context.Context, _ port.ModelRequest) (*port.ModelResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

type observed struct {
	outcome Outcome
	attempt int
}

func recordingObserver(events *[]observed) Observer {
	return func(outcome Outcome, attempt int, _ time.Duration) {
		*events = append(*events, observed{outcome, attempt})
	}
}

func TestRunner_SuccessFirstAttempt(t *testing.T) {
	var events []observed
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		ok(`{"fields": []}`),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 3, Observe: recordingObserver(&events)}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, `{"fields": []}`, res.Response.RawText)
	require.Len(t, events, 1)
	assert.Equal(t, OutcomeOK, events[0].outcome)
}

func TestRunner_InvalidOutputRetriedWithTightenedPrompt(t *testing.T) {
	var events []observed
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		fail(&backend.InvalidOutputError{Reason: "truncated"}),
		ok(`{"fields": []}`),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 3, Observe: recordingObserver(&events)}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "extract things"}, TightenRequest)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, inv.requests, 2)
	assert.NotContains(t, inv.requests[0].Prompt, tightenSuffix)
	assert.Contains(t, inv.requests[1].Prompt, tightenSuffix)
	assert.Equal(t, []observed{{OutcomeInvalidOutput, 1}, {OutcomeOK, 2}}, events)
}

func TestRunner_TightenAppliedOnce(t *testing.T) {
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		fail(&backend.InvalidOutputError{Reason: "a"}),
		fail(&backend.InvalidOutputError{Reason: "b"}),
		fail(&backend.InvalidOutputError{Reason: "c"}),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 3}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.Error(t, err)
	assert.True(t, backend.IsInvalidOutput(err))
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 1, strings.Count(inv.requests[2].Prompt, tightenSuffix))
}

func TestRunner_TimeoutNeverRetried(t *testing.T) {
	var events []observed
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		hang(),
		ok(`{"fields": []}`),
	}}
	r := &Runner{Deadline: 20 * time.Millisecond, MaxAttempts: 3, Observe: recordingObserver(&events)}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.Error(t, err)
	assert.True(t, backend.IsTimeout(err))
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, inv.requests, 1)
	assert.Equal(t, []observed{{OutcomeTimeout, 1}}, events)
}

func TestRunner_ExplicitTimeoutErrorNeverRetried(t *testing.T) {
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		fail(&backend.TimeoutError{Budget: time.Second}),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 3}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.Error(t, err)
	assert.True(t, backend.IsTimeout(err))
	assert.Equal(t, 1, res.Attempts)
}

func TestRunner_DownstreamFailureRetriedWithSamePrompt(t *testing.T) {
	var events []observed
	downstream := errors.New("connection reset")
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		fail(downstream),
		fail(downstream),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 2, Observe: recordingObserver(&events)}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.Error(t, err)
	assert.ErrorIs(t, err, downstream)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, inv.requests[0].Prompt, inv.requests[1].Prompt)
	assert.Equal(t, []observed{{OutcomeFailed, 1}, {OutcomeFailed, 2}}, events)
}

func TestRunner_BackendPanicIsDownstreamFailure(t *testing.T) {
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		func(context.Context, port.ModelRequest) (*port.ModelResponse, error) { panic("boom") },
		ok(`{"fields": []}`),
	}}
	r := &Runner{Deadline: time.Second, MaxAttempts: 2}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, TightenRequest)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
}

func TestRunner_ZeroMaxAttemptsMeansOne(t *testing.T) {
	inv := &scriptedInvoker{script: []func(context.Context, port.ModelRequest) (*port.ModelResponse, error){
		fail(errors.New("down")),
	}}
	r := &Runner{Deadline: time.Second}

	res, err := r.Run(context.Background(), inv, port.ModelRequest{Prompt: "p"}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Len(t, inv.requests, 1)
}
