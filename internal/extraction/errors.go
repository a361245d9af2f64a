package extraction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrMalformedResponse marks extractor output that could not be decoded.
	ErrMalformedResponse = errors.New("malformed extractor response")
	// ErrExtractorTimeout marks an extractor call that exceeded its deadline.
	ErrExtractorTimeout = errors.New("extractor call timed out")
	// ErrUnknownProvider is returned by the provider factories.
	ErrUnknownProvider = errors.New("unknown extraction provider")
)

// ExtractorError records which extractor operation failed.
type ExtractorError struct {
	Extractor string
	Op        string
	Err       error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Extractor, e.Op, e.Err)
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates an extraction provider returned HTTP 429.
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

// classify decides how the executor treats an extractor failure. Rate limits
// are retryable and trip the breaker; malformed output does neither.
func classify(err error) ErrorClassification {
	var rl *RateLimitError
	switch {
	case errors.As(err, &rl):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, ErrMalformedResponse):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case errors.Is(err, context.Canceled):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
