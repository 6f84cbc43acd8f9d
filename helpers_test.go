package zodios

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

// recordingTransport answers every request with a fixed status and body
// and records what it was sent.
type recordingTransport struct {
	mu       sync.Mutex
	status   int
	body     any
	requests []*transport.Request
}

func (t *recordingTransport) Send(_ context.Context, req *transport.Request) (*transport.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	data, _ := json.Marshal(t.body)
	resp := &transport.Response{
		Status: status,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   data,
	}
	if !resp.OK() {
		return nil, &transport.Error{Kind: transport.KindStatus, Message: http.StatusText(status), Response: resp}
	}
	return resp, nil
}

func (t *recordingTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *recordingTransport) last() *transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

func postEndpoints() []Endpoint {
	post := schema.Object(map[string]schema.Schema{
		"id":    schema.Integer(),
		"title": schema.String(),
	})
	return []Endpoint{
		{
			Method:   MethodGet,
			Path:     "/posts",
			Alias:    "getPosts",
			Response: schema.Array(post),
			Parameters: []Parameter{
				{Name: "limit", Type: ParamQuery, Schema: schema.Optional(schema.Coerce(schema.Integer()))},
				{Name: "X-Tenant", Type: ParamHeader, Schema: schema.Optional(schema.String())},
			},
		},
		{
			Method:   MethodGet,
			Path:     "/posts/:id",
			Alias:    "getPost",
			Response: post,
			Errors: []ErrorSchema{
				{Status: 404, Schema: schema.Object(map[string]schema.Schema{"message": schema.String()})},
				{Status: DefaultStatus, Schema: schema.Object(map[string]schema.Schema{"error": schema.String()})},
			},
		},
		{
			Method:   MethodPost,
			Path:     "/posts",
			Alias:    "createPost",
			Response: post,
			Status:   201,
			Parameters: []Parameter{
				{Name: "body", Type: ParamBody, Schema: schema.Object(map[string]schema.Schema{"title": schema.String()})},
			},
		},
		{
			Method:   MethodDelete,
			Path:     "/users/:userId/posts/:postId",
			Alias:    "deleteUserPost",
			Response: schema.Any(),
		},
	}
}

func newTestClient(t interface{ Fatalf(string, ...any) }, tr Transport, opts ...Option) *Client {
	client, err := New("http://api.test", postEndpoints(), append([]Option{WithTransport(tr)}, opts...)...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return client
}
