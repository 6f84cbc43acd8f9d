package transport

import (
	"net/url"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled by one token per refillRate.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens <= 0 {
		return false
	}
	rl.tokens--
	return true
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	if rl.refillRate <= 0 {
		return
	}
	now := rl.now()
	add := int(now.Sub(rl.lastRefill) / rl.refillRate)
	if add <= 0 {
		return
	}
	rl.tokens += add
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(add) * rl.refillRate)
}

// KeyFunc derives the rate limiting key of a request.
type KeyFunc func(req *Request) string

// HostKey limits per target host.
func HostKey(req *Request) string {
	if u, err := url.Parse(req.URL); err == nil && u.Host != "" {
		return "host:" + u.Host
	}
	return "host:unknown"
}

// RouteKey limits per endpoint route, e.g. "route:GET /posts/:id".
func RouteKey(req *Request) string {
	if req.Route != "" {
		return "route:" + req.Route
	}
	if u, err := url.Parse(req.URL); err == nil {
		return "route:" + req.Method + " " + u.Path
	}
	return "route:unknown"
}

// limiterRegistry holds limiters registered for specific keys.
type limiterRegistry struct {
	mu       sync.RWMutex
	key      KeyFunc
	limiters map[string]*RateLimiter
}

func (r *limiterRegistry) register(key string, limiter *RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limiters == nil {
		r.limiters = make(map[string]*RateLimiter)
	}
	r.limiters[key] = limiter
}

// lookup returns the limiter registered for req's key, or fallback under
// the name "default". A nil limiter means requests are not limited.
func (r *limiterRegistry) lookup(req *Request, fallback *RateLimiter) (*RateLimiter, string) {
	if r.key != nil {
		key := r.key(req)
		r.mu.RLock()
		limiter, ok := r.limiters[key]
		r.mu.RUnlock()
		if ok {
			return limiter, key
		}
	}
	return fallback, "default"
}
