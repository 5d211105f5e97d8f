// Package resilience classifies collaborator errors and retries the
// retryable ones with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// Class is the retry disposition of an error.
type Class int

const (
	// Fatal errors are never retried.
	Fatal Class = iota
	// Transient errors (5xx, timeouts, resets) are retried with backoff.
	Transient
	// RateLimited errors are retried after at least RetryAfter.
	RateLimited
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case RateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// TransientError wraps an error that is safe to retry (5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitedError signals a rate or quota rejection. RetryAfter is the
// server's requested wait, zero when unknown.
type RateLimitedError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitedError) Unwrap() error {
	return e.Err
}

// NewRateLimitedError wraps an error as rate limited.
func NewRateLimitedError(err error, retryAfter time.Duration) *RateLimitedError {
	return &RateLimitedError{Err: err, RetryAfter: retryAfter}
}

// Classify decides how an error should be retried. Boundary adapters mark
// errors with RateLimitedError or TransientError; anything else is fatal
// unless it is a network-level timeout or connection reset.
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return RateLimited
	}

	var te *TransientError
	if errors.As(err, &te) {
		return Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return Transient
	}

	return Fatal
}

// IsRetryable reports whether Classify puts err in a retryable class.
func IsRetryable(err error) bool {
	return Classify(err) != Fatal
}

// RetryAfter returns the server-requested delay carried by a
// RateLimitedError in err's chain, or zero.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// ClassifyHTTPStatus maps an HTTP status code to a retry class.
func ClassifyHTTPStatus(statusCode int) Class {
	switch statusCode {
	case 429, // Too Many Requests
		529: // Overloaded
		return RateLimited
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return Transient
	default:
		return Fatal
	}
}

// WrapHTTPStatus wraps err according to ClassifyHTTPStatus. Fatal statuses
// return err unchanged.
func WrapHTTPStatus(err error, statusCode int, retryAfter time.Duration) error {
	switch ClassifyHTTPStatus(statusCode) {
	case RateLimited:
		return NewRateLimitedError(err, retryAfter)
	case Transient:
		return NewTransientError(err, statusCode)
	default:
		return err
	}
}
