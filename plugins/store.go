package plugins

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astahmer/zodios/transport"
)

// Entry is a cached response.
type Entry struct {
	Status    int
	Header    http.Header
	Body      []byte
	ExpiresAt time.Time
}

func (e *Entry) response() *transport.Response {
	return &transport.Response{Status: e.Status, Header: e.Header.Clone(), Body: e.Body}
}

// Store keeps cached responses by key.
type Store interface {
	Get(key string) (*Entry, bool)
	Set(key string, entry *Entry, ttl time.Duration)
	Delete(key string)
	Clear()
}

const storeShards = 16

type storeShard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// MemoryStore is a sharded in-memory Store. Expired entries are dropped
// when they are next read.
type MemoryStore struct {
	shards [storeShards]*storeShard
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &storeShard{entries: make(map[string]*Entry)}
	}
	return s
}

func (s *MemoryStore) shard(key string) *storeShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%storeShards]
}

func (s *MemoryStore) Get(key string) (*Entry, bool) {
	shard := s.shard(key)
	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(entry.ExpiresAt) {
		shard.mu.Lock()
		if shard.entries[key] == entry {
			delete(shard.entries, key)
		}
		shard.mu.Unlock()
		return nil, false
	}
	return entry, true
}

func (s *MemoryStore) Set(key string, entry *Entry, ttl time.Duration) {
	shard := s.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry.ExpiresAt = s.now().Add(ttl)
	shard.entries[key] = entry
}

func (s *MemoryStore) Delete(key string) {
	shard := s.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.entries, key)
}

func (s *MemoryStore) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.entries = make(map[string]*Entry)
		shard.mu.Unlock()
	}
}

// Len counts stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	n := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		n += len(shard.entries)
		shard.mu.RUnlock()
	}
	return n
}

// cacheDirectives holds the Cache-Control directives that decide whether
// and how long a response is kept.
type cacheDirectives struct {
	noStore bool
	noCache bool
	maxAge  *time.Duration
}

func parseCacheControl(header string) cacheDirectives {
	var d cacheDirectives
	for _, part := range strings.Split(header, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")
		if !hasValue {
			switch key {
			case "no-store":
				d.noStore = true
			case "no-cache":
				d.noCache = true
			}
			continue
		}

		if key == "max-age" {
			if seconds, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `"`)); err == nil && seconds >= 0 {
				maxAge := time.Duration(seconds) * time.Second
				d.maxAge = &maxAge
			}
		}
	}
	return d
}

// parseExpires accepts the three date formats HTTP allows.
func parseExpires(header string) (time.Time, bool) {
	if header == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC1123, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, header); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// responseTTL decides how long resp may be cached, falling back to def
// when the server says nothing. Zero means do not cache.
func responseTTL(header http.Header, def time.Duration, now time.Time) time.Duration {
	d := parseCacheControl(header.Get("Cache-Control"))
	if d.noStore || d.noCache {
		return 0
	}
	if d.maxAge != nil {
		return *d.maxAge
	}
	if expires, ok := parseExpires(header.Get("Expires")); ok {
		if ttl := expires.Sub(now); ttl > 0 {
			return ttl
		}
		return 0
	}
	return def
}
