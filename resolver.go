package zodios

import (
	"context"
	"errors"

	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

// resolve turns the pipeline outcome into the value returned to callers.
func (c *Client) resolve(ctx context.Context, endpoint *Endpoint, req *Request, resp *Response, err error) (any, error) {
	if err != nil {
		return nil, c.resolveError(ctx, endpoint, req, err)
	}
	if !c.validate || endpoint.Response == nil {
		return resp.Data, nil
	}

	out, verr := endpoint.Response.Validate(ctx, resp.Data)
	if verr != nil {
		c.metrics.RecordValidationFailure("response", endpoint.String())
		if c.debug.Enabled && c.debug.LogValidation {
			c.logger.Warn("Response validation failed", "requestID", req.ID, "endpoint", endpoint.String(), "error", verr)
		}
		return nil, &ResponseValidationError{
			Endpoint: endpoint.String(),
			Status:   resp.Status,
			Cause:    schema.AsValidationError(verr),
		}
	}
	return out, nil
}

// resolveError shapes an HTTP error status with the matching error schema:
// the exact status first, then "default". Without a match, or without a
// response at all, err is returned unchanged.
func (c *Client) resolveError(ctx context.Context, endpoint *Endpoint, req *Request, err error) error {
	var terr *transport.Error
	if !errors.As(err, &terr) || terr.Response == nil {
		return err
	}
	status := terr.Response.Status
	declared, ok := endpoint.ErrorSchemaFor(status)
	if !ok {
		return err
	}

	resp := newResponse(terr.Response)
	payload := resp.Data
	if c.validate && declared.Schema != nil {
		out, verr := declared.Schema.Validate(ctx, payload)
		if verr != nil {
			c.metrics.RecordValidationFailure("error", endpoint.String())
			if c.debug.Enabled && c.debug.LogValidation {
				c.logger.Warn("Error body validation failed", "requestID", req.ID, "endpoint", endpoint.String(), "status", status, "error", verr)
			}
			return &ResponseValidationError{
				Endpoint: endpoint.String(),
				Status:   status,
				Cause:    schema.AsValidationError(verr),
				Err:      err,
			}
		}
		payload = out
	}

	return &HTTPError{
		Status:   status,
		Payload:  payload,
		Endpoint: endpoint.String(),
		Response: resp,
		Cause:    err,
	}
}
