// Package plugins holds ready-made zodios plugins: static and computed
// headers, bearer tokens with one-shot refresh, a response cache and
// request logging.
package plugins

import (
	"context"

	"github.com/astahmer/zodios"
)

// Header sets key to value on every request.
func Header(key, value string) zodios.Plugin {
	return HeaderFunc(key, func(context.Context) (string, error) {
		return value, nil
	})
}

// HeaderFunc sets key to the value returned by fn on every request. An
// empty value leaves the request untouched.
func HeaderFunc(key string, fn func(ctx context.Context) (string, error)) zodios.Plugin {
	return zodios.Plugin{
		Name: "header:" + key,
		Request: func(ctx context.Context, _ *zodios.Catalog, req *zodios.Request) (*zodios.Request, error) {
			value, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			if value == "" {
				return req, nil
			}
			next := req.Clone()
			next.Headers.Set(key, value)
			return next, nil
		},
	}
}
