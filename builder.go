package zodios

import (
	"context"
	"net/http"
	"strings"
)

// buildRequest assembles the canonical request for endpoint. It validates
// declared Query, Header and Body parameters when validation is on, keeps
// the transformed values, and checks every path placeholder has a value.
// It performs no I/O.
func (c *Client) buildRequest(ctx context.Context, endpoint *Endpoint, cfg *RequestConfig) (*Request, error) {
	req := &Request{
		ID:       c.requestID(),
		Method:   endpoint.Method,
		URL:      endpoint.Path,
		Params:   cloneMap(cfg.Params),
		Queries:  cloneMap(cfg.Queries),
		Headers:  c.defaultHeaders(),
		Data:     cfg.Data,
		Format:   endpoint.Format(),
		BaseURL:  firstNonEmpty(cfg.BaseURL, c.baseURL),
		Timeout:  c.timeout,
		Endpoint: endpoint,
		client:   c,
	}
	if cfg.Timeout > 0 {
		req.Timeout = cfg.Timeout
	}
	for k, v := range cfg.Headers {
		req.Headers.Set(k, v)
	}

	for _, p := range endpoint.Parameters {
		switch p.Type {
		case ParamQuery:
			value, present := req.Queries[p.Name]
			out, err := c.validateParam(ctx, p, value)
			if err != nil {
				return nil, err
			}
			if out != nil || present {
				if req.Queries == nil {
					req.Queries = make(map[string]any)
				}
				req.Queries[p.Name] = out
			}
		case ParamHeader:
			var value any
			if vs := req.Headers.Values(p.Name); len(vs) > 0 {
				value = vs[0]
			}
			out, err := c.validateParam(ctx, p, value)
			if err != nil {
				return nil, err
			}
			if out != nil {
				req.Headers.Set(p.Name, formatValue(out))
			}
		case ParamBody:
			out, err := c.validateParam(ctx, p, req.Data)
			if err != nil {
				return nil, err
			}
			req.Data = out
		}
	}

	for _, name := range endpoint.PathParams() {
		if v, ok := req.Params[name]; !ok || v == nil {
			return nil, &MissingPathParamError{Name: name, Path: endpoint.Path}
		}
	}
	return req, nil
}

func (c *Client) validateParam(ctx context.Context, p Parameter, value any) (any, error) {
	if !c.validate || p.Schema == nil {
		return value, nil
	}
	out, err := p.Schema.Validate(ctx, value)
	if err != nil {
		return nil, &ParameterValidationError{Name: p.Name, Type: p.Type, Cause: err}
	}
	return out, nil
}

func (c *Client) defaultHeaders() http.Header {
	if c.headers == nil {
		return http.Header{}
	}
	return c.headers.Clone()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
