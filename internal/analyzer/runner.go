package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"visara/internal/backend"
	"visara/internal/port"
)

// Outcome classifies one backend attempt.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeInvalidOutput Outcome = "invalid_output"
	OutcomeFailed        Outcome = "failed"
)

// Observer is notified after every attempt. It is the runner's only coupling
// to metrics; a nil observer is fine.
type Observer func(outcome Outcome, attempt int, elapsed time.Duration)

// Transform rewrites the request between attempts, after a contract-invalid
// failure. Typically TightenRequest.
type Transform func(req port.ModelRequest, failure error) port.ModelRequest

// TightenRequest appends the strict-JSON instruction to the prompt.
func TightenRequest(req port.ModelRequest, _ error) port.ModelRequest {
	req.Prompt = TightenPrompt(req.Prompt)
	return req
}

// Runner executes one logical model call under a hard per-attempt deadline
// with bounded retries.
//
// Policy:
//   - Timeout: surfaced immediately, never retried. The attempt count stops
//     where the timeout happened.
//   - Contract-invalid output: retried while attempts remain, with the
//     transform applied to the next request.
//   - Other downstream failures: retried with the same request and budget.
type Runner struct {
	Deadline    time.Duration
	MaxAttempts int
	Observe     Observer
}

// RunResult reports the terminal outcome of a Run.
type RunResult struct {
	Response *port.ModelResponse
	Attempts int
	Elapsed  time.Duration
}

// Run drives the retry loop. On failure the returned error is the last
// attempt's error, classifiable with backend.IsTimeout / backend.IsInvalidOutput.
func (r *Runner) Run(ctx context.Context, invoker port.ModelInvoker, req port.ModelRequest, transform Transform) (RunResult, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := r.attempt(ctx, invoker, req)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			r.observe(OutcomeOK, attempt, elapsed)
			return RunResult{Response: resp, Attempts: attempt, Elapsed: elapsed}, nil

		case backend.IsTimeout(err):
			r.observe(OutcomeTimeout, attempt, elapsed)
			return RunResult{Attempts: attempt, Elapsed: elapsed}, err

		case backend.IsInvalidOutput(err):
			r.observe(OutcomeInvalidOutput, attempt, elapsed)
			lastErr = err
			if attempt < maxAttempts && transform != nil {
				req = transform(req, err)
			}

		default:
			r.observe(OutcomeFailed, attempt, elapsed)
			lastErr = err
		}

		if attempt < maxAttempts {
			log.Printf("analyzer.Runner: attempt %d/%d against %s failed, retrying: %v",
				attempt, maxAttempts, invoker.ModelID(), err)
		}
	}

	return RunResult{Attempts: maxAttempts, Elapsed: time.Since(start)}, lastErr
}

// attempt makes one backend call bounded by the deadline. The call runs in
// its own goroutine so a hung backend cannot stall the caller; a late result
// is discarded.
func (r *Runner) attempt(ctx context.Context, invoker port.ModelInvoker, req port.ModelRequest) (*port.ModelResponse, error) {
	actx, cancel := context.WithTimeout(ctx, r.Deadline)
	defer cancel()

	type result struct {
		resp *port.ModelResponse
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("backend panic: %v", p)}
			}
		}()
		resp, err := invoker.Invoke(actx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-actx.Done():
		return nil, &backend.TimeoutError{Budget: r.Deadline}
	case res := <-done:
		if res.err != nil && backend.IsTimeout(res.err) {
			return nil, &backend.TimeoutError{Budget: r.Deadline}
		}
		return res.resp, res.err
	}
}

func (r *Runner) observe(outcome Outcome, attempt int, elapsed time.Duration) {
	if r.Observe != nil {
		r.Observe(outcome, attempt, elapsed)
	}
}
