package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TimeoutError indicates the backend did not respond within budget. It is
// never retried; a slow backend retried immediately will likely be slow
// again and doubles cost.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model backend timed out after %s", e.Budget)
}

// InvalidOutputError indicates the backend responded but the payload
// violates the expected output contract (empty, truncated, wrong shape).
type InvalidOutputError struct {
	Reason string
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid model output: %s", e.Reason)
}

// RateLimitError indicates a backend provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// IsTimeout reports whether err is timeout-class: either an explicit
// TimeoutError or a context deadline surfaced by an HTTP client.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsInvalidOutput reports whether err is a contract violation by the backend.
func IsInvalidOutput(err error) bool {
	var ie *InvalidOutputError
	return errors.As(err, &ie)
}
