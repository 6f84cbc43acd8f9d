package zodios_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/schema"
	"github.com/astahmer/zodios/transport"
)

// staticTransport answers every request with body and status.
func staticTransport(status int, body string) zodios.Transport {
	return zodios.TransportFunc(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		resp := &transport.Response{
			Status: status,
			Header: http.Header{"Content-Type": {"application/json"}},
			Body:   []byte(body),
		}
		if !resp.OK() {
			return nil, &transport.Error{Kind: transport.KindStatus, Message: http.StatusText(status), Method: req.Method, URL: req.URL, Response: resp}
		}
		return resp, nil
	})
}

func ExampleClient_Call() {
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	client, err := zodios.New("https://api.example.com", []zodios.Endpoint{{
		Method: zodios.MethodGet,
		Path:   "/users/:id",
		Alias:  "getUser",
		Response: schema.Object(map[string]schema.Schema{
			"id":   schema.Integer(),
			"name": schema.String(),
		}),
	}}, zodios.WithTransport(staticTransport(200, `{"id":7,"name":"Ada"}`)))
	if err != nil {
		panic(err)
	}

	u, err := zodios.CallAs[user](context.Background(), client, "getUser", nil, &zodios.RequestConfig{
		Params: map[string]any{"id": 7},
	})
	fmt.Println(u.ID, u.Name, err)
	// Output: 7 Ada <nil>
}

func ExampleClient_Use() {
	client, _ := zodios.New("https://api.example.com", []zodios.Endpoint{
		{Method: zodios.MethodGet, Path: "/ping", Alias: "ping", Response: schema.Any()},
	}, zodios.WithTransport(staticTransport(200, `"pong"`)))

	for _, name := range []string{"first", "second"} {
		name := name
		client.Use(zodios.Plugin{
			Name: name,
			Request: func(_ context.Context, _ *zodios.Catalog, req *zodios.Request) (*zodios.Request, error) {
				fmt.Println("request", name)
				return req, nil
			},
			Response: func(_ context.Context, _ *zodios.Catalog, _ *zodios.Request, resp *zodios.Response) (*zodios.Response, error) {
				fmt.Println("response", name)
				return resp, nil
			},
		})
	}

	out, _ := client.Call(context.Background(), "ping", nil, nil)
	fmt.Println(out)
	// Output:
	// request first
	// request second
	// response first
	// response second
	// pong
}

func ExampleHTTPError() {
	client, _ := zodios.New("https://api.example.com", []zodios.Endpoint{{
		Method:   zodios.MethodGet,
		Path:     "/users/:id",
		Alias:    "getUser",
		Response: schema.Any(),
		Errors: []zodios.ErrorSchema{
			{Status: 404, Schema: schema.Object(map[string]schema.Schema{"message": schema.String()})},
		},
	}}, zodios.WithTransport(staticTransport(404, `{"message":"no such user"}`)))

	_, err := client.Call(context.Background(), "getUser", nil, &zodios.RequestConfig{Params: map[string]any{"id": 1}})

	var herr *zodios.HTTPError
	if errors.As(err, &herr) {
		fmt.Println(herr.Status, herr.Payload)
	}
	// Output: 404 map[message:no such user]
}
