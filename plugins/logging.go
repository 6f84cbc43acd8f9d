package plugins

import (
	"context"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/logging"
)

// LoggerPluginName is the name the logging plugin registers under.
const LoggerPluginName = "logger"

// Logger logs each request, its response status and failures. It never
// changes the request or recovers from errors, so register it last to see
// what the other plugins produced.
func Logger(logger logging.Logger) zodios.Plugin {
	if logger == nil {
		logger = logging.Nop()
	}
	return zodios.Plugin{
		Name: LoggerPluginName,
		Request: func(_ context.Context, _ *zodios.Catalog, req *zodios.Request) (*zodios.Request, error) {
			logger.Info("Sending request", "requestID", req.ID, "method", string(req.Method), "url", req.URL, "retried", req.Retried)
			return req, nil
		},
		Response: func(_ context.Context, _ *zodios.Catalog, req *zodios.Request, resp *zodios.Response) (*zodios.Response, error) {
			logger.Info("Received response", "requestID", req.ID, "method", string(req.Method), "url", req.URL, "status", resp.Status)
			return resp, nil
		},
		Error: func(_ context.Context, _ *zodios.Catalog, req *zodios.Request, err error) (*zodios.Response, error) {
			logger.Warn("Request failed", "requestID", req.ID, "method", string(req.Method), "url", req.URL, "status", zodios.StatusCode(err), "error", err)
			return nil, nil
		},
	}
}
