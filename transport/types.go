package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Request is a fully assembled outgoing call. URL is absolute.
type Request struct {
	ID      string
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
	// Route labels metrics and logs, e.g. "GET /posts/:id". Host and path
	// of URL are used when empty.
	Route string
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// RoundTripper is the HTTP round trip used at the end of the middleware chain.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc adapts a function to RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps every HTTP attempt, retries included.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// Option configures a Client.
type Option func(*Client)

// CircuitBreakerConfig holds circuit breaker thresholds. Zero values take
// defaults of 5 failures, 60s recovery and 2 successes.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// DebugConfig selects which transport events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogRetries   bool
	LogCircuit   bool
	LogRateLimit bool
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled config that logs every category
// once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests:  true,
		LogRetries:   true,
		LogCircuit:   true,
		LogRateLimit: true,
		RequestIDGen: uuid.NewString,
	}
}
