package zodios

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/metrics"
	"github.com/astahmer/zodios/transport"
)

// Client calls the endpoints of a Catalog. It is safe for concurrent use;
// plugins may be registered and removed while calls are in flight.
type Client struct {
	catalog          *Catalog
	plugins          pluginList
	transport        Transport
	transportOptions []transport.Option
	baseURL          string
	timeout          time.Duration
	headers          http.Header
	validate         bool
	logger           logging.Logger
	debug            *DebugConfig
	metrics          *metrics.Collector
	requestID        func() string
}

// AliasFunc calls one aliased endpoint. data must be nil for endpoints
// whose method does not carry a body.
type AliasFunc func(ctx context.Context, data any, cfg *RequestConfig) (any, error)

// New creates a client for endpoints served under baseURL.
func New(baseURL string, endpoints []Endpoint, options ...Option) (*Client, error) {
	catalog, err := NewCatalog(endpoints...)
	if err != nil {
		return nil, err
	}
	return NewWithCatalog(baseURL, catalog, options...), nil
}

// NewWithCatalog creates a client sharing an existing catalog.
func NewWithCatalog(baseURL string, catalog *Catalog, options ...Option) *Client {
	c := &Client{
		catalog:   catalog,
		baseURL:   baseURL,
		validate:  true,
		logger:    logging.Nop(),
		debug:     DefaultDebugConfig(),
		requestID: uuid.NewString,
	}
	for _, option := range options {
		option(c)
	}

	if c.transport == nil {
		opts := []transport.Option{transport.WithLogger(c.logger), transport.WithMetrics(c.metrics)}
		if c.debug.Enabled {
			opts = append(opts, transport.WithDebug())
		}
		c.transport = transport.New(append(opts, c.transportOptions...)...)
	}
	return c
}

// Request calls the endpoint declared with cfg.Method and cfg.URL.
func (c *Client) Request(ctx context.Context, cfg RequestConfig) (any, error) {
	endpoint, err := c.catalog.FindByPath(cfg.Method, cfg.URL)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, endpoint, &cfg)
}

// Call calls the endpoint registered under alias. The alias is resolved
// on every call, so endpoints added to the catalog later are reachable.
func (c *Client) Call(ctx context.Context, alias string, data any, cfg *RequestConfig) (any, error) {
	endpoint, err := c.catalog.FindByAlias(alias)
	if err != nil {
		return nil, err
	}

	var call RequestConfig
	if cfg != nil {
		call = *cfg
	}
	if endpoint.Method.IsMutation() {
		if data != nil {
			call.Data = data
		}
	} else if data != nil {
		return nil, fmt.Errorf("zodios: %s (%s) does not take a body", alias, endpoint)
	}
	return c.do(ctx, endpoint, &call)
}

// Alias returns a function bound to alias.
func (c *Client) Alias(alias string) AliasFunc {
	return func(ctx context.Context, data any, cfg *RequestConfig) (any, error) {
		return c.Call(ctx, alias, data, cfg)
	}
}

// Get calls the GET endpoint declared with path.
func (c *Client) Get(ctx context.Context, path string, cfg *RequestConfig) (any, error) {
	return c.method(ctx, MethodGet, path, nil, cfg)
}

// Post calls the POST endpoint declared with path.
func (c *Client) Post(ctx context.Context, path string, data any, cfg *RequestConfig) (any, error) {
	return c.method(ctx, MethodPost, path, data, cfg)
}

// Put calls the PUT endpoint declared with path.
func (c *Client) Put(ctx context.Context, path string, data any, cfg *RequestConfig) (any, error) {
	return c.method(ctx, MethodPut, path, data, cfg)
}

// Patch calls the PATCH endpoint declared with path.
func (c *Client) Patch(ctx context.Context, path string, data any, cfg *RequestConfig) (any, error) {
	return c.method(ctx, MethodPatch, path, data, cfg)
}

// Delete calls the DELETE endpoint declared with path.
func (c *Client) Delete(ctx context.Context, path string, data any, cfg *RequestConfig) (any, error) {
	return c.method(ctx, MethodDelete, path, data, cfg)
}

func (c *Client) method(ctx context.Context, method Method, path string, data any, cfg *RequestConfig) (any, error) {
	var call RequestConfig
	if cfg != nil {
		call = *cfg
	}
	call.Method = method
	call.URL = path
	if data != nil {
		call.Data = data
	}
	return c.Request(ctx, call)
}

func (c *Client) do(ctx context.Context, endpoint *Endpoint, cfg *RequestConfig) (any, error) {
	req, err := c.buildRequest(ctx, endpoint, cfg)
	if err != nil {
		if c.debug.Enabled && c.debug.LogValidation {
			c.logger.Warn("Request rejected", "endpoint", endpoint.String(), "error", err)
		}
		c.metrics.RecordValidationFailure("request", endpoint.String())
		return nil, err
	}
	if c.debug.Enabled && c.debug.LogRequests {
		c.logger.Debug("Starting request", "requestID", req.ID, "endpoint", endpoint.String(), "alias", endpoint.Alias)
	}

	resp, err := c.run(ctx, c.plugins.snapshot(), req)
	out, err := c.resolve(ctx, endpoint, req, resp, err)
	if c.debug.Enabled && c.debug.LogRequests {
		c.logger.Debug("Request finished", "requestID", req.ID, "endpoint", endpoint.String(), "error", err)
	}
	return out, err
}

// Use registers p at the end of the plugin list. A named plugin replaces,
// in place, the registered plugin with the same name.
func (c *Client) Use(p Plugin) PluginID {
	return c.plugins.use(p)
}

// UseBefore registers p just before the plugin named anchor.
func (c *Client) UseBefore(anchor string, p Plugin) (PluginID, error) {
	return c.plugins.insert(anchor, p, false)
}

// UseAfter registers p just after the plugin named anchor.
func (c *Client) UseAfter(anchor string, p Plugin) (PluginID, error) {
	return c.plugins.insert(anchor, p, true)
}

// Eject removes the registration id and reports whether it existed.
func (c *Client) Eject(id PluginID) bool {
	return c.plugins.eject(id)
}

// Remove removes the plugin named name.
func (c *Client) Remove(name string) error {
	return c.plugins.remove(name)
}

// Plugin returns the plugin named name.
func (c *Client) Plugin(name string) (Plugin, bool) {
	return c.plugins.get(name)
}

// PluginCount returns the number of registered plugins.
func (c *Client) PluginCount() int {
	return c.plugins.count()
}

// Catalog returns the client catalog. Endpoints added to it are callable
// right away.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// BaseURL returns the default base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Validates reports whether schema validation is on.
func (c *Client) Validates() bool {
	return c.validate
}
