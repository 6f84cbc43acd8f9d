package zodios

import (
	"context"
	"fmt"
	"sync"
)

// RequestInterceptor may rewrite the request before it is sent. Returning a
// nil request keeps the current one.
type RequestInterceptor func(ctx context.Context, api *Catalog, req *Request) (*Request, error)

// ResponseInterceptor may rewrite a successful response. Returning a nil
// response keeps the current one; an error turns the call into a failure
// that later error interceptors see.
type ResponseInterceptor func(ctx context.Context, api *Catalog, req *Request, resp *Response) (*Response, error)

// ErrorInterceptor may recover from a failure by returning a response.
// Returning (nil, nil) passes err on unchanged; returning an error replaces it.
type ErrorInterceptor func(ctx context.Context, api *Catalog, req *Request, err error) (*Response, error)

// Plugin bundles optional interceptors. Only named plugins can be replaced
// or removed by name.
type Plugin struct {
	Name     string
	Request  RequestInterceptor
	Response ResponseInterceptor
	Error    ErrorInterceptor
}

// PluginID identifies one registration, named or not.
type PluginID uint64

type pluginEntry struct {
	id     PluginID
	plugin *Plugin
}

// pluginList is ordered; readers take a snapshot so registrations never
// affect calls in flight.
type pluginList struct {
	mu      sync.RWMutex
	entries []pluginEntry
	nextID  PluginID
}

func (l *pluginList) newEntry(p Plugin) pluginEntry {
	l.nextID++
	return pluginEntry{id: l.nextID, plugin: &p}
}

func (l *pluginList) indexOf(name string) int {
	if name == "" {
		return -1
	}
	for i, e := range l.entries {
		if e.plugin.Name == name {
			return i
		}
	}
	return -1
}

// use appends p, or replaces in place the plugin with the same name.
func (l *pluginList) use(p Plugin) PluginID {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.newEntry(p)
	if i := l.indexOf(p.Name); i >= 0 {
		l.entries[i] = entry
		return entry.id
	}
	l.entries = append(l.entries, entry)
	return entry.id
}

// insert places p before or after the plugin named anchor.
func (l *pluginList) insert(anchor string, p Plugin, after bool) (PluginID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(anchor)
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrPluginNotFound, anchor)
	}
	if p.Name != "" && p.Name != anchor {
		if j := l.indexOf(p.Name); j >= 0 {
			l.entries = append(l.entries[:j:j], l.entries[j+1:]...)
			if j < i {
				i--
			}
		}
	}
	if after {
		i++
	}

	entry := l.newEntry(p)
	entries := make([]pluginEntry, 0, len(l.entries)+1)
	entries = append(entries, l.entries[:i]...)
	entries = append(entries, entry)
	entries = append(entries, l.entries[i:]...)
	l.entries = entries
	return entry.id, nil
}

func (l *pluginList) eject(id PluginID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (l *pluginList) remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
	return nil
}

func (l *pluginList) get(name string) (Plugin, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexOf(name); i >= 0 {
		return *l.entries[i].plugin, true
	}
	return Plugin{}, false
}

func (l *pluginList) snapshot() []*Plugin {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Plugin, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.plugin
	}
	return out
}

func (l *pluginList) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
