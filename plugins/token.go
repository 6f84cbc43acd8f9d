package plugins

import (
	"context"
	"errors"
	"net/http"

	"github.com/astahmer/zodios"
)

// TokenPluginName is the name the token plugin registers under.
const TokenPluginName = "auth-token"

// TokenProvider supplies bearer tokens. Renew is optional; without it a 401
// is passed through.
type TokenProvider struct {
	Token func(ctx context.Context) (string, error)
	Renew func(ctx context.Context) (string, error)
	// Header defaults to Authorization.
	Header string
}

// Token authenticates requests with a bearer token. When a response comes
// back 401 and Renew is set, the token is renewed and the request is sent
// once more. A request that was already resent is never renewed again.
func Token(provider TokenProvider) zodios.Plugin {
	header := provider.Header
	if header == "" {
		header = "Authorization"
	}

	p := zodios.Plugin{
		Name: TokenPluginName,
		Request: func(ctx context.Context, _ *zodios.Catalog, req *zodios.Request) (*zodios.Request, error) {
			if provider.Token == nil {
				return req, nil
			}
			token, err := provider.Token(ctx)
			if err != nil {
				return nil, err
			}
			if token == "" {
				return req, nil
			}
			next := req.Clone()
			next.Headers.Set(header, "Bearer "+token)
			return next, nil
		},
	}

	if provider.Renew != nil {
		p.Error = func(ctx context.Context, _ *zodios.Catalog, req *zodios.Request, err error) (*zodios.Response, error) {
			if req.Retried || zodios.StatusCode(err) != http.StatusUnauthorized {
				return nil, nil
			}
			token, rerr := provider.Renew(ctx)
			if rerr != nil {
				return nil, errors.Join(err, rerr)
			}
			return req.Resend(ctx, func(next *zodios.Request) {
				next.Headers.Set(header, "Bearer "+token)
			})
		}
	}
	return p
}
