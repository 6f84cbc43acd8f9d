// Package transport is the default network collaborator: a net/http client
// that reads responses fully and layers retries, circuit breaking, rate
// limiting, an HTTP middleware chain, metrics and debug logging around each
// call. It is safe for concurrent use.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astahmer/zodios/internal/backoff"
	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/metrics"
)

// Client sends Requests over HTTP.
type Client struct {
	httpClient        *http.Client
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffStrategy   backoff.Strategy
	timeout           time.Duration
	retryPolicy       RetryPolicy
	circuitBreaker    *CircuitBreaker
	rateLimiter       *RateLimiter
	limiters          limiterRegistry
	middleware        []Middleware
	metrics           *metrics.Collector
	debug             *DebugConfig
	logger            logging.Logger
	sleep             func(ctx context.Context, d time.Duration) error
	validationError   error
}

// New builds a Client from options. Configuration problems are reported by
// ValidationError and returned from every Send.
func New(options ...Option) *Client {
	c := &Client{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		maxRetries:        3,
		initialBackoff:    100 * time.Millisecond,
		maxBackoff:        10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0.1,
		backoffStrategy:   backoff.Exponential{},
		timeout:           30 * time.Second,
		circuitBreaker:    NewCircuitBreaker(CircuitBreakerConfig{}),
		debug:             DefaultDebugConfig(),
		logger:            logging.Nop(),
		sleep:             sleepContext,
	}

	for _, option := range options {
		option(c)
	}

	if c.retryPolicy == nil {
		c.retryPolicy = NewDefaultRetryPolicyWithStrategy(c.maxRetries, c.initialBackoff, c.maxBackoff, c.backoffMultiplier, c.jitter, c.backoffStrategy)
	}
	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}
	return c
}

// Send dispatches req. A 2xx response is returned as is; anything else is
// an *Error, with KindStatus errors carrying the response.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	route := routeLabel(req)
	requestID := req.ID
	if requestID == "" && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug.Enabled && c.debug.LogRequests {
		c.logger.Debug("Starting request", "requestID", requestID, "method", req.Method, "url", req.URL, "route", route)
	}
	c.metrics.RecordRequestStart(req.Method, route)

	resp, err := c.doWithRetry(ctx, req, requestID, route, start)

	c.metrics.RecordRequestEnd(req.Method, route)
	status := 0
	if resp != nil {
		status = resp.Status
	} else {
		var terr *Error
		if errors.As(err, &terr) {
			status = terr.StatusCode()
		}
	}
	c.metrics.RecordRequest(req.Method, route, status, time.Since(start))

	if c.debug.Enabled && c.debug.LogRequests {
		c.logger.Debug("Request finished", "requestID", requestID, "status", status, "duration", time.Since(start).String(), "error", err)
	}
	return resp, err
}

func (c *Client) doWithRetry(ctx context.Context, req *Request, requestID, route string, start time.Time) (*Response, error) {
	for attempt := 0; ; attempt++ {
		if limiter, name := c.limiters.lookup(req, c.rateLimiter); limiter != nil {
			if !limiter.Allow() {
				if c.debug.Enabled && c.debug.LogRateLimit {
					c.logger.Warn("Rate limit exceeded", "requestID", requestID, "route", route, "limiter", name)
				}
				c.metrics.RecordError("RateLimit", req.Method, route)
				return nil, c.newError(KindRateLimited, "rate limit exceeded", ErrRateLimited, requestID, req, attempt, start, nil)
			}
			c.metrics.RecordRateLimiterTokens(name, limiter.Tokens())
		}

		if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
			if c.debug.Enabled && c.debug.LogCircuit {
				c.logger.Warn("Circuit breaker open", "requestID", requestID, "route", route)
			}
			c.metrics.RecordError("CircuitBreaker", req.Method, route)
			return nil, c.newError(KindCircuitOpen, "circuit breaker is open", ErrCircuitOpen, requestID, req, attempt, start, nil)
		}

		if attempt > 0 {
			if c.debug.Enabled && c.debug.LogRetries {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", c.maxRetries, "route", route)
			}
			c.metrics.RecordRetry(req.Method, route, attempt)
		}

		resp, err := c.roundTrip(ctx, req)
		c.recordOutcome(req, route, requestID, resp, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.newError(kindForContext(ctxErr), "request aborted", ctxErr, requestID, req, attempt, start, nil)
		}

		delay, retry := c.retryPolicy.ShouldRetry(req.Method, resp, err, attempt)
		if !retry {
			switch {
			case err != nil:
				return nil, c.newError(KindNetwork, "network request failed", err, requestID, req, attempt, start, nil)
			case !resp.OK():
				return nil, c.newError(KindStatus, http.StatusText(resp.Status), nil, requestID, req, attempt, start, resp)
			default:
				return resp, nil
			}
		}

		if c.debug.Enabled && c.debug.LogRetries {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay.String(), "route", route)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, c.newError(kindForContext(err), "request aborted during backoff", err, requestID, req, attempt, start, nil)
		}
	}
}

func (c *Client) recordOutcome(req *Request, route, requestID string, resp *Response, err error) {
	if c.circuitBreaker == nil {
		return
	}
	if err == nil && resp.Status < 500 {
		c.circuitBreaker.RecordSuccess()
		c.metrics.RecordCircuitBreakerState("default", int(c.circuitBreaker.State()))
		return
	}

	c.circuitBreaker.RecordFailure()
	c.metrics.RecordCircuitBreakerState("default", int(c.circuitBreaker.State()))
	if err != nil {
		c.metrics.RecordError("Network", req.Method, route)
	} else {
		c.metrics.RecordError("Server", req.Method, route)
	}
	if c.debug.Enabled && c.debug.LogCircuit {
		if err != nil {
			c.logger.Warn("Circuit breaker failure recorded", "requestID", requestID, "error", err)
		} else {
			c.logger.Warn("Circuit breaker failure recorded", "requestID", requestID, "statusCode", resp.Status)
		}
	}
}

// roundTrip performs one attempt and reads the body fully.
func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.executeMiddleware(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripper(RoundTripperFunc(c.httpClient.Do))
	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}
	return current.RoundTrip(req)
}

func (c *Client) newError(kind Kind, message string, cause error, requestID string, req *Request, attempt int, start time.Time, resp *Response) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     strings.ToUpper(req.Method),
		URL:        req.URL,
		Attempt:    attempt,
		MaxRetries: c.maxRetries,
		Duration:   time.Since(start),
		Response:   resp,
	}
}

// IsValid reports whether configuration validation passed in New.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration error found by New, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// CircuitBreaker returns the breaker in use, or nil.
func (c *Client) CircuitBreaker() *CircuitBreaker {
	return c.circuitBreaker
}

func routeLabel(req *Request) string {
	if req.Route != "" {
		return req.Route
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	if u.Path == "" || u.Path == "/" {
		return u.Host + "/"
	}
	return u.Host + u.Path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
