package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/astahmer/zodios/internal/backoff"
)

// RetryPolicy decides whether attempt (zero based) should be tried again
// and how long to wait first. resp is nil when err is set.
type RetryPolicy interface {
	ShouldRetry(method string, resp *Response, err error, attempt int) (time.Duration, bool)
}

// RetryPolicyFunc adapts a function to RetryPolicy.
type RetryPolicyFunc func(method string, resp *Response, err error, attempt int) (time.Duration, bool)

func (f RetryPolicyFunc) ShouldRetry(method string, resp *Response, err error, attempt int) (time.Duration, bool) {
	return f(method, resp, err, attempt)
}

// DefaultRetryPolicy retries idempotent methods on network errors, 429 and
// 5xx responses, honouring Retry-After when the server sends one.
type DefaultRetryPolicy struct {
	maxRetries   int
	params       backoff.Params
	strategy     backoff.Strategy
	isIdempotent func(method string) bool
}

// NewDefaultRetryPolicy creates a policy using exponential backoff with jitter.
func NewDefaultRetryPolicy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) *DefaultRetryPolicy {
	return NewDefaultRetryPolicyWithStrategy(maxRetries, initialBackoff, maxBackoff, multiplier, jitter, backoff.Exponential{})
}

// NewDefaultRetryPolicyWithStrategy creates a policy with an explicit backoff strategy.
func NewDefaultRetryPolicyWithStrategy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64, strategy backoff.Strategy) *DefaultRetryPolicy {
	if strategy == nil {
		strategy = backoff.Exponential{}
	}
	return &DefaultRetryPolicy{
		maxRetries: maxRetries,
		params: backoff.Params{
			Initial:    initialBackoff,
			Max:        maxBackoff,
			Multiplier: multiplier,
			Jitter:     jitter,
		},
		strategy:     strategy,
		isIdempotent: DefaultIsIdempotent,
	}
}

// ShouldRetry implements RetryPolicy.
func (p *DefaultRetryPolicy) ShouldRetry(method string, resp *Response, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxRetries || !p.isIdempotent(method) {
		return 0, false
	}

	var delay time.Duration
	switch {
	case err != nil:
	case resp != nil && (resp.Status == http.StatusTooManyRequests || resp.Status >= 500):
		delay = parseRetryAfter(resp.Header.Get("Retry-After"))
	default:
		return 0, false
	}

	if delay == 0 {
		delay = p.strategy.Delay(attempt, p.params)
	}
	return delay, true
}

// MaxRetries returns the retry limit.
func (p *DefaultRetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// DefaultIsIdempotent reports whether method is safe to repeat.
func DefaultIsIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// parseRetryAfter accepts delay-seconds and HTTP-date values, capped at an hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds <= 0 {
			return 0
		}
		delay := time.Duration(seconds) * time.Second
		if delay > time.Hour {
			delay = time.Hour
		}
		return delay
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}
	return 0
}
