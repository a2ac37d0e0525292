package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"visara/internal/port"
)

// circuitState tracks rate-limit backoff for a single backend.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackInvoker tries backends in order, skipping those with open
// rate-limit circuits. Timeout and invalid-output failures are NOT handed to
// the next backend: those belong to the retry runner, which owns the
// per-attempt budget. Only downstream failures (including rate limits) fall
// through. It implements port.ModelInvoker.
type FallbackInvoker struct {
	invokers []port.ModelInvoker
	circuits []*circuitState
	names    []string
}

// NewFallbackInvoker creates a FallbackInvoker from an ordered list of invokers and their names.
func NewFallbackInvoker(invokers []port.ModelInvoker, names []string) *FallbackInvoker {
	circuits := make([]*circuitState, len(invokers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackInvoker{
		invokers: invokers,
		circuits: circuits,
		names:    names,
	}
}

// ModelID reports the first healthy backend's model, for labeling.
func (f *FallbackInvoker) ModelID() string {
	now := time.Now()
	for i, inv := range f.invokers {
		if _, open := f.circuits[i].isOpenWithReset(now); !open {
			return inv.ModelID()
		}
	}
	return f.invokers[0].ModelID()
}

func (f *FallbackInvoker) Invoke(ctx context.Context, req port.ModelRequest) (*port.ModelResponse, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, inv := range f.invokers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("backend.FallbackInvoker: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := inv.Invoke(ctx, req)
		if err == nil {
			return out, nil
		}

		// Timeouts and contract violations are the runner's problem, not a
		// reason to burn the next provider's quota.
		if IsTimeout(err) || IsInvalidOutput(err) {
			return nil, err
		}

		log.Printf("backend.FallbackInvoker: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		// Every backend was skipped or rate limited
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all backends rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all backends failed: %w", lastErr)
}
