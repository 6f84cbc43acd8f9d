package zodios

import (
	"sync"
)

type routeKey struct {
	method Method
	path   string
}

// Catalog is the ordered set of endpoints a client can call. Lookups are
// exact on the declared method and path template. It is safe for
// concurrent use; endpoints can be added but never removed.
type Catalog struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
	byRoute   map[routeKey]*Endpoint
	byAlias   map[string]*Endpoint
}

// NewCatalog builds a catalog, rejecting duplicate routes or aliases and
// endpoints with more than one Body parameter.
func NewCatalog(endpoints ...Endpoint) (*Catalog, error) {
	c := &Catalog{
		byRoute: make(map[routeKey]*Endpoint),
		byAlias: make(map[string]*Endpoint),
	}
	if err := c.Add(endpoints...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on error, for package-level declarations.
func MustCatalog(endpoints ...Endpoint) *Catalog {
	c, err := NewCatalog(endpoints...)
	if err != nil {
		panic(err)
	}
	return c
}

// Add appends endpoints. Either all are added or, on error, none.
func (c *Catalog) Add(endpoints ...Endpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pendingRoutes := make(map[routeKey]bool, len(endpoints))
	pendingAliases := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		e := &endpoints[i]
		method, err := ParseMethod(string(e.Method))
		if err != nil {
			return &CatalogError{Endpoint: e.String(), Reason: err.Error()}
		}
		if e.Path == "" {
			return &CatalogError{Endpoint: e.String(), Reason: "path is required"}
		}

		key := routeKey{method: method, path: e.Path}
		if _, dup := c.byRoute[key]; dup || pendingRoutes[key] {
			return &CatalogError{Endpoint: e.String(), Reason: "duplicate method and path"}
		}
		pendingRoutes[key] = true

		if e.Alias != "" {
			if _, dup := c.byAlias[e.Alias]; dup || pendingAliases[e.Alias] {
				return &CatalogError{Endpoint: e.String(), Reason: "duplicate alias " + e.Alias}
			}
			pendingAliases[e.Alias] = true
		}

		bodies := 0
		for _, p := range e.Parameters {
			switch p.Type {
			case ParamBody:
				bodies++
			case ParamQuery, ParamHeader:
			default:
				return &CatalogError{Endpoint: e.String(), Reason: "parameter " + p.Name + " has unknown type " + string(p.Type)}
			}
		}
		if bodies > 1 {
			return &CatalogError{Endpoint: e.String(), Reason: "more than one Body parameter"}
		}
	}

	for i := range endpoints {
		e := endpoints[i]
		e.Method, _ = ParseMethod(string(e.Method))
		e.Parameters = append([]Parameter(nil), e.Parameters...)
		e.Errors = append([]ErrorSchema(nil), e.Errors...)

		c.endpoints = append(c.endpoints, &e)
		c.byRoute[routeKey{method: e.Method, path: e.Path}] = &e
		if e.Alias != "" {
			c.byAlias[e.Alias] = &e
		}
	}
	return nil
}

// FindByPath returns the endpoint declared with method and path.
func (c *Catalog) FindByPath(method Method, path string) (*Endpoint, error) {
	normalized, err := ParseMethod(string(method))
	if err != nil {
		return nil, &EndpointNotFoundError{Method: method, Path: path}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.byRoute[routeKey{method: normalized, path: path}]; ok {
		return e, nil
	}
	return nil, &EndpointNotFoundError{Method: normalized, Path: path}
}

// FindByAlias returns the endpoint registered under alias.
func (c *Catalog) FindByAlias(alias string) (*Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.byAlias[alias]; ok {
		return e, nil
	}
	return nil, &EndpointNotFoundError{Alias: alias}
}

// Endpoints returns the endpoints in declaration order. The endpoints
// themselves are shared and must not be modified.
func (c *Catalog) Endpoints() []*Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Endpoint(nil), c.endpoints...)
}

// Aliases returns the declared aliases in declaration order.
func (c *Catalog) Aliases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for _, e := range c.endpoints {
		if e.Alias != "" {
			out = append(out, e.Alias)
		}
	}
	return out
}

// Len returns the number of endpoints.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.endpoints)
}
