package plugins_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/logging"
	"github.com/astahmer/zodios/plugins"
	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

type fakeTransport struct {
	mu       sync.Mutex
	requests []*transport.Request
	respond  func(n int, req *transport.Request) (int, http.Header, any)
}

func (f *fakeTransport) Send(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	f.mu.Unlock()

	status, header, body := http.StatusOK, http.Header(nil), any(map[string]any{"ok": true})
	if f.respond != nil {
		status, header, body = f.respond(n, req)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	data, _ := json.Marshal(body)
	resp := &transport.Response{Status: status, Header: header, Body: data}
	if !resp.OK() {
		return nil, &transport.Error{Kind: transport.KindStatus, Message: http.StatusText(status), Response: resp}
	}
	return resp, nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) request(i int) *transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func endpoints() []zodios.Endpoint {
	return []zodios.Endpoint{
		{Method: zodios.MethodGet, Path: "/me", Alias: "getMe", Response: schema.Any()},
		{Method: zodios.MethodGet, Path: "/posts/:id", Alias: "getPost", Response: schema.Any()},
		{
			Method: zodios.MethodPost, Path: "/search", Alias: "search", Immutable: true, Response: schema.Any(),
			Parameters: []zodios.Parameter{{Name: "body", Type: zodios.ParamBody, Schema: schema.Any()}},
		},
		{
			Method: zodios.MethodPost, Path: "/posts", Alias: "createPost", Response: schema.Any(),
			Parameters: []zodios.Parameter{{Name: "body", Type: zodios.ParamBody, Schema: schema.Any()}},
		},
	}
}

func newClient(t *testing.T, tr zodios.Transport, ps ...zodios.Plugin) *zodios.Client {
	t.Helper()
	client, err := zodios.New("http://api.test", endpoints(), zodios.WithTransport(tr), zodios.WithPlugins(ps...))
	require.NoError(t, err)
	return client
}

func TestHeaderPlugin(t *testing.T) {
	tr := &fakeTransport{}
	client := newClient(t, tr, plugins.Header("X-Api-Key", "secret"))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", tr.request(0).Header.Get("X-Api-Key"))

	p, ok := client.Plugin("header:X-Api-Key")
	require.True(t, ok)
	assert.NotNil(t, p.Request)
}

func TestHeaderFuncErrorStopsCall(t *testing.T) {
	tr := &fakeTransport{}
	boom := errors.New("no tenant")
	client := newClient(t, tr, plugins.HeaderFunc("X-Tenant", func(context.Context) (string, error) {
		return "", boom
	}))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, tr.calls())
}

func TestHeaderFuncEmptyValueSkipped(t *testing.T) {
	tr := &fakeTransport{}
	client := newClient(t, tr, plugins.HeaderFunc("X-Tenant", func(context.Context) (string, error) {
		return "", nil
	}))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, tr.request(0).Header.Get("X-Tenant"))
}

func TestTokenRenewsOnceOn401(t *testing.T) {
	tr := &fakeTransport{respond: func(_ int, req *transport.Request) (int, http.Header, any) {
		if req.Header.Get("Authorization") != "Bearer fresh" {
			return http.StatusUnauthorized, nil, map[string]any{"error": "expired"}
		}
		return http.StatusOK, nil, map[string]any{"name": "ada"}
	}}
	var renewals int32
	client := newClient(t, tr, plugins.Token(plugins.TokenProvider{
		Token: func(context.Context) (string, error) { return "stale", nil },
		Renew: func(context.Context) (string, error) {
			atomic.AddInt32(&renewals, 1)
			return "fresh", nil
		},
	}))

	out, err := client.Call(context.Background(), "getMe", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, out)
	assert.Equal(t, 2, tr.calls())
	assert.Equal(t, "Bearer stale", tr.request(0).Header.Get("Authorization"))
	assert.Equal(t, "Bearer fresh", tr.request(1).Header.Get("Authorization"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&renewals))
}

func TestTokenDoesNotRenewTwice(t *testing.T) {
	tr := &fakeTransport{respond: func(int, *transport.Request) (int, http.Header, any) {
		return http.StatusUnauthorized, nil, map[string]any{"error": "denied"}
	}}
	var renewals int32
	provider := plugins.TokenProvider{
		Token: func(context.Context) (string, error) { return "stale", nil },
		Renew: func(context.Context) (string, error) {
			atomic.AddInt32(&renewals, 1)
			return "fresh", nil
		},
	}
	second := plugins.Token(provider)
	second.Name = "auth-token-2"
	client := newClient(t, tr, plugins.Token(provider), second)

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, zodios.StatusCode(err))
	assert.Equal(t, 2, tr.calls())
	assert.EqualValues(t, 1, atomic.LoadInt32(&renewals))
}

func TestTokenWithoutRenewPassesThrough(t *testing.T) {
	tr := &fakeTransport{respond: func(int, *transport.Request) (int, http.Header, any) {
		return http.StatusUnauthorized, nil, map[string]any{"error": "denied"}
	}}
	client := newClient(t, tr, plugins.Token(plugins.TokenProvider{
		Token: func(context.Context) (string, error) { return "abc", nil },
	}))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, tr.calls())
}

func TestTokenRenewFailureJoinsErrors(t *testing.T) {
	tr := &fakeTransport{respond: func(int, *transport.Request) (int, http.Header, any) {
		return http.StatusUnauthorized, nil, nil
	}}
	boom := errors.New("refresh token revoked")
	client := newClient(t, tr, plugins.Token(plugins.TokenProvider{
		Token: func(context.Context) (string, error) { return "abc", nil },
		Renew: func(context.Context) (string, error) { return "", boom },
	}))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, http.StatusUnauthorized, zodios.StatusCode(err))
}

func TestCacheServesRepeatedReads(t *testing.T) {
	tr := &fakeTransport{}
	store := plugins.NewMemoryStore()
	client := newClient(t, tr, plugins.Cache(plugins.CacheOptions{Store: store}))
	ctx := context.Background()

	first, err := client.Call(ctx, "getPost", nil, &zodios.RequestConfig{Params: map[string]any{"id": 1}})
	require.NoError(t, err)
	second, err := client.Call(ctx, "getPost", nil, &zodios.RequestConfig{Params: map[string]any{"id": 1}})
	require.NoError(t, err)
	_, err = client.Call(ctx, "getPost", nil, &zodios.RequestConfig{Params: map[string]any{"id": 2}})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, tr.calls())
	assert.Equal(t, 2, store.Len())
}

func TestCacheRespectsNoStore(t *testing.T) {
	tr := &fakeTransport{respond: func(int, *transport.Request) (int, http.Header, any) {
		return http.StatusOK, http.Header{"Cache-Control": {"no-store"}}, map[string]any{"ok": true}
	}}
	client := newClient(t, tr, plugins.Cache(plugins.CacheOptions{}))

	for i := 0; i < 2; i++ {
		_, err := client.Call(context.Background(), "getMe", nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, tr.calls())
}

func TestCacheSkipsMutationsButKeepsImmutable(t *testing.T) {
	tr := &fakeTransport{}
	client := newClient(t, tr, plugins.Cache(plugins.CacheOptions{}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Call(ctx, "createPost", map[string]any{"title": "a"}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, tr.calls())

	for i := 0; i < 2; i++ {
		_, err := client.Call(ctx, "search", map[string]any{"q": "go"}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, tr.calls())

	_, err := client.Call(ctx, "search", map[string]any{"q": "rust"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, tr.calls())
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	tr := &fakeTransport{respond: func(n int, _ *transport.Request) (int, http.Header, any) {
		if n == 1 {
			return http.StatusInternalServerError, nil, map[string]any{"error": "down"}
		}
		return http.StatusOK, nil, map[string]any{"ok": true}
	}}
	client := newClient(t, tr, plugins.Cache(plugins.CacheOptions{}))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.Error(t, err)
	_, err = client.Call(context.Background(), "getMe", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.calls())
}

type blockingTransport struct {
	fakeTransport
	release chan struct{}
}

func (b *blockingTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	<-b.release
	return b.fakeTransport.Send(ctx, req)
}

func TestCacheCoalescesConcurrentMisses(t *testing.T) {
	tr := &blockingTransport{release: make(chan struct{})}
	client := newClient(t, tr, plugins.Cache(plugins.CacheOptions{}))

	var wg sync.WaitGroup
	results := make([]any, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Call(context.Background(), "getMe", nil, nil)
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(tr.release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, map[string]any{"ok": true}, results[i])
	}
	assert.Equal(t, 1, tr.calls())
}

func TestLoggerPlugin(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewZerolog(zerolog.New(&buf))
	tr := &fakeTransport{respond: func(n int, _ *transport.Request) (int, http.Header, any) {
		if n == 2 {
			return http.StatusNotFound, nil, nil
		}
		return http.StatusOK, nil, map[string]any{"ok": true}
	}}
	client := newClient(t, tr, plugins.Logger(logger))

	_, err := client.Call(context.Background(), "getMe", nil, nil)
	require.NoError(t, err)
	_, err = client.Call(context.Background(), "getMe", nil, nil)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"message":"Sending request"`)
	assert.Contains(t, lines[1], `"message":"Received response"`)
	assert.Contains(t, lines[1], `"status":200`)
	assert.Contains(t, lines[3], `"message":"Request failed"`)
	assert.Contains(t, lines[3], `"status":404`)
}
