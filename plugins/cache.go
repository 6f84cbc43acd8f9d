package plugins

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/internal/singleflight"
	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/metrics"
	"github.com/astahmer/zodios/transport"
)

// CachePluginName is the name the cache plugin registers under.
const CachePluginName = "cache"

// DefaultCacheTTL applies when a response carries no caching headers.
const DefaultCacheTTL = 5 * time.Minute

// CacheOptions configures Cache.
type CacheOptions struct {
	Store   Store
	TTL     time.Duration
	Key     func(req *transport.Request) string
	Metrics *metrics.Collector
	Logger  logging.Logger
}

// Cache answers repeated reads from a store. GET endpoints and endpoints
// marked Immutable are cached; Cache-Control and Expires on the response
// override the TTL, and no-store or no-cache responses are never kept.
// Concurrent misses for one key share a single transport call.
func Cache(opts CacheOptions) zodios.Plugin {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.Key == nil {
		opts.Key = DefaultCacheKey
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	c := &responseCache{opts: opts, now: time.Now}
	return zodios.Plugin{
		Name:    CachePluginName,
		Request: c.intercept,
	}
}

// DefaultCacheKey keys on method and URL, plus a hash of the body for
// immutable endpoints that send one.
func DefaultCacheKey(req *transport.Request) string {
	key := req.Method + " " + req.URL
	if len(req.Body) > 0 {
		h := fnv.New64a()
		_, _ = h.Write(req.Body)
		key += " " + strconv.FormatUint(h.Sum64(), 16)
	}
	return key
}

type responseCache struct {
	opts  CacheOptions
	group singleflight.Group[*transport.Response]
	now   func() time.Time
}

func (c *responseCache) cacheable(req *zodios.Request) bool {
	if req.Method == zodios.MethodGet {
		return true
	}
	return req.Endpoint != nil && req.Endpoint.Immutable
}

func (c *responseCache) intercept(_ context.Context, _ *zodios.Catalog, req *zodios.Request) (*zodios.Request, error) {
	if !c.cacheable(req) {
		return req, nil
	}
	next := req.Adapter
	if next == nil {
		next = req.DefaultTransport()
	}
	if next == nil {
		return req, nil
	}

	out := req.Clone()
	out.Adapter = zodios.TransportFunc(func(ctx context.Context, wire *transport.Request) (*transport.Response, error) {
		return c.send(ctx, next, wire)
	})
	return out, nil
}

func (c *responseCache) send(ctx context.Context, next zodios.Transport, wire *transport.Request) (*transport.Response, error) {
	key := c.opts.Key(wire)
	if entry, ok := c.opts.Store.Get(key); ok {
		c.opts.Metrics.RecordCacheHit(wire.Route)
		c.opts.Logger.Debug("Cache hit", "requestID", wire.ID, "key", key)
		return entry.response(), nil
	}
	c.opts.Metrics.RecordCacheMiss(wire.Route)

	resp, err, shared := c.group.Do(key, func() (*transport.Response, error) {
		resp, err := next.Send(ctx, wire)
		if err != nil {
			return nil, err
		}
		if ttl := responseTTL(resp.Header, c.opts.TTL, c.now()); ttl > 0 {
			c.opts.Store.Set(key, &Entry{Status: resp.Status, Header: resp.Header.Clone(), Body: resp.Body}, ttl)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.opts.Logger.Debug("Shared in-flight response", "requestID", wire.ID, "key", key)
		return &transport.Response{Status: resp.Status, Header: resp.Header.Clone(), Body: resp.Body}, nil
	}
	return resp, nil
}
