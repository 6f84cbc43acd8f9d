package transport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/astahmer/zodios/internal/backoff"
	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/metrics"
)

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the first retry delay
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// WithMaxBackoff caps the retry delay
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.maxBackoff = d
	}
}

// WithBackoffMultiplier sets the exponential growth factor
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.backoffMultiplier = f
	}
}

// WithJitter sets the jitter factor, clamped to [0, 1]
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithBackoffStrategy selects "exponential" or "decorrelated" backoff.
func WithBackoffStrategy(name string) Option {
	return func(c *Client) {
		c.backoffStrategy = backoff.ForName(name)
	}
}

// WithRetryPolicy replaces the default retry policy. The retry and backoff
// options above are ignored when it is set.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithTimeout sets the net/http client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithCircuitBreaker sets the circuit breaker configuration
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithoutCircuitBreaker disables circuit breaking
func WithoutCircuitBreaker() Option {
	return func(c *Client) {
		c.circuitBreaker = nil
	}
}

// WithRateLimiter allows maxTokens requests in a burst, refilled one per refillRate
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithRateLimitKey selects the key used to find limiters registered with
// WithKeyedRateLimiter, e.g. HostKey or RouteKey.
func WithRateLimitKey(key KeyFunc) Option {
	return func(c *Client) {
		c.limiters.key = key
	}
}

// WithKeyedRateLimiter limits requests whose rate limit key equals key.
// Other requests use the limiter set by WithRateLimiter, if any.
func WithKeyedRateLimiter(key string, maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.limiters.register(key, NewRateLimiter(maxTokens, refillRate))
	}
}

// WithMiddleware appends HTTP middleware
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithHTTPClient sets the underlying net/http client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		if client != nil && c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithMetrics records Prometheus metrics on the given collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			logger = logging.Nop()
		}
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default categories
func WithDebug() Option {
	return func(c *Client) {
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets the debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		if config == nil {
			config = DefaultDebugConfig()
		}
		c.debug = config
	}
}

// ValidateConfiguration checks the client settings and returns a KindConfig
// *Error listing every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateRateLimiterConfig()...)
	problems = append(problems, c.validateCircuitBreakerConfig()...)
	problems = append(problems, c.validateMiddlewareConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}

	if len(problems) > 0 {
		return &Error{
			Kind:    KindConfig,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %s", strings.Join(problems, "; ")),
		}
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string
	if c.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if c.initialBackoff <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if c.maxBackoff < c.initialBackoff {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if c.backoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	return problems
}

func (c *Client) validateRateLimiterConfig() []string {
	var problems []string
	check := func(name string, rl *RateLimiter) {
		if rl.maxTokens <= 0 {
			problems = append(problems, name+" maxTokens must be positive")
		}
		if rl.refillRate <= 0 {
			problems = append(problems, name+" refillRate must be positive")
		}
	}
	if c.rateLimiter != nil {
		check("rateLimiter", c.rateLimiter)
	}
	keys := make([]string, 0, len(c.limiters.limiters))
	for key := range c.limiters.limiters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		check("rateLimiter["+key+"]", c.limiters.limiters[key])
	}
	if len(keys) > 0 && c.limiters.key == nil {
		problems = append(problems, "keyed rate limiters need WithRateLimitKey")
	}
	return problems
}

func (c *Client) validateCircuitBreakerConfig() []string {
	if c.circuitBreaker == nil {
		return nil
	}
	var problems []string
	if c.circuitBreaker.config.FailureThreshold <= 0 {
		problems = append(problems, "circuitBreaker FailureThreshold must be positive")
	}
	if c.circuitBreaker.config.RecoveryTimeout <= 0 {
		problems = append(problems, "circuitBreaker RecoveryTimeout must be positive")
	}
	if c.circuitBreaker.config.SuccessThreshold <= 0 {
		problems = append(problems, "circuitBreaker SuccessThreshold must be positive")
	}
	return problems
}

func (c *Client) validateMiddlewareConfig() []string {
	var problems []string
	for i, middleware := range c.middleware {
		if middleware == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}
	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string
	if c.maxRetries > 100 {
		problems = append(problems, "maxRetries > 100 may cause excessive resource usage")
	}
	if c.initialBackoff > 10*time.Minute {
		problems = append(problems, "initialBackoff > 10m may cause very long delays")
	}
	if c.maxBackoff > time.Hour {
		problems = append(problems, "maxBackoff > 1h may cause extremely long delays")
	}
	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}
	if c.rateLimiter != nil && c.rateLimiter.refillRate > 0 && c.rateLimiter.refillRate < time.Millisecond {
		problems = append(problems, "rateLimiter refillRate < 1ms may cause excessive CPU usage")
	}
	return problems
}
