package zodios

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/metrics"
	"github.com/astahmer/zodios/transport"
)

// Option configures a Client.
type Option func(*Client)

// DebugConfig selects which client events are logged.
type DebugConfig struct {
	Enabled       bool
	LogRequests   bool
	LogPlugins    bool
	LogValidation bool
}

// DefaultDebugConfig returns a disabled config that logs every category
// once enabled.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests:   true,
		LogPlugins:    true,
		LogValidation: true,
	}
}

// WithValidation turns schema validation of parameters and responses on
// or off. It is on by default.
func WithValidation(enabled bool) Option {
	return func(c *Client) {
		c.validate = enabled
	}
}

// WithTransport replaces the default transport. Transport options are
// ignored when it is set.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithTransportOptions configures the default transport.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) {
		c.transportOptions = append(c.transportOptions, opts...)
	}
}

// WithBaseURL sets the base URL, overriding the one passed to New.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the default per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHeaders adds default headers; per-call headers take precedence.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = http.Header{}
		}
		for k, v := range headers {
			c.headers.Set(k, v)
		}
	}
}

// WithPlugins registers plugins in order, as Use would.
func WithPlugins(plugins ...Plugin) Option {
	return func(c *Client) {
		for _, p := range plugins {
			c.plugins.use(p)
		}
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

// WithMetrics records validation failures and error recoveries, and is
// handed to the default transport.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRequestIDGenerator sets the function producing Request.ID
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen == nil {
			gen = uuid.NewString
		}
		c.requestID = gen
	}
}
