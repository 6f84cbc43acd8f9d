package zodios

import (
	"context"
	"errors"
)

// run folds the request interceptors, sends the request, then folds the
// response and error interceptors over the outcome, all in registration
// order. At each plugin the response interceptor runs while the call is
// succeeding and the error interceptor while it is failing, so a recovery
// skips the remaining error interceptors and feeds later response ones.
func (c *Client) run(ctx context.Context, plugins []*Plugin, req *Request) (*Response, error) {
	for _, p := range plugins {
		if p.Request == nil {
			continue
		}
		if c.debug.Enabled && c.debug.LogPlugins {
			c.logger.Debug("Request interceptor", "requestID", req.ID, "plugin", p.Name)
		}
		next, err := p.Request(ctx, c.catalog, req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}

	resp, err := c.dispatch(ctx, req)
	var terr *TransportError
	if err != nil && !errors.As(err, &terr) {
		return nil, err
	}

	for _, p := range plugins {
		if err == nil {
			if p.Response == nil {
				continue
			}
			if c.debug.Enabled && c.debug.LogPlugins {
				c.logger.Debug("Response interceptor", "requestID", req.ID, "plugin", p.Name, "status", resp.Status)
			}
			next, rerr := p.Response(ctx, c.catalog, req, resp)
			if rerr != nil {
				resp, err = nil, rerr
				continue
			}
			if next != nil {
				resp = next
			}
			continue
		}

		if p.Error == nil {
			continue
		}
		if c.debug.Enabled && c.debug.LogPlugins {
			c.logger.Debug("Error interceptor", "requestID", req.ID, "plugin", p.Name, "error", err)
		}
		recovered, rerr := p.Error(ctx, c.catalog, req, err)
		switch {
		case rerr != nil:
			err = rerr
			if errors.As(rerr, &terr) && terr.Request != nil {
				req = terr.Request
			}
		case recovered != nil:
			resp, err = recovered, nil
			c.metrics.RecordErrorRecovery(p.Name, req.Route())
			if c.debug.Enabled && c.debug.LogPlugins {
				c.logger.Debug("Error recovered", "requestID", req.ID, "plugin", p.Name, "status", resp.Status)
			}
		}
	}
	return resp, err
}

// dispatch sends req through its Adapter or the client transport. Transport
// failures come back as *TransportError; anything else failed before sending.
func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, error) {
	wire, err := req.transportRequest()
	if err != nil {
		return nil, err
	}

	sender := c.transport
	if req.Adapter != nil {
		sender = req.Adapter
	}
	if c.debug.Enabled && c.debug.LogRequests {
		c.logger.Debug("Dispatching request", "requestID", req.ID, "method", wire.Method, "url", wire.URL, "retried", req.Retried, "adapter", req.Adapter != nil)
	}

	out, err := sender.Send(ctx, wire)
	if err != nil {
		return nil, &TransportError{Request: req, Err: err}
	}
	return newResponse(out), nil
}
