// Package singleflight coalesces concurrent calls that share a key so only
// one of them performs the work.
package singleflight

import (
	"errors"
	"sync"
)

// ErrPanicked is handed to waiters whose shared call panicked.
var ErrPanicked = errors.New("singleflight: shared call panicked")

type call[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
	dup int
}

// Group tracks in-flight calls by key. The zero value is ready to use.
type Group[V any] struct {
	mu sync.Mutex
	m  map[string]*call[V]
}

// Do runs fn once per key among overlapping callers. Late callers wait for
// the owner and receive its result; shared reports whether the result was
// handed to more than one caller.
func (g *Group[V]) Do(key string, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dup++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[V]{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	// the panic stays with the owner; waiters get ErrPanicked
	c.err = ErrPanicked
	defer func() {
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		c.wg.Done()
	}()

	c.val, c.err = fn()

	g.mu.Lock()
	shared = c.dup > 0
	g.mu.Unlock()
	return c.val, c.err, shared
}

// Forget drops the key so the next caller starts a fresh call even if one is
// still running.
func (g *Group[V]) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}
