// Package zodios is a typed HTTP API client runtime driven by declarative
// endpoint descriptions.
//
// An Endpoint declares a method, a path template such as /posts/:id, its
// Query, Header and Body parameters, the response schema and the error
// schemas per status. A Client resolves each call by method and path or by
// alias, then:
//
//   - builds the canonical Request, validating parameters against their schemas
//   - runs the request interceptors of every registered Plugin, in order
//   - sends the request through the Transport (retries, circuit breaking and
//     rate limiting live in package transport)
//   - folds the response and error interceptors over the outcome, in order
//   - validates the body against the response schema, or shapes an error
//     status into an *HTTPError using the matching error schema
//
// Typical usage:
//
//	api := []zodios.Endpoint{{
//	    Method:   zodios.MethodGet,
//	    Path:     "/posts/:id",
//	    Alias:    "getPost",
//	    Response: schema.OpenAPI(postSchema),
//	}}
//	client, err := zodios.New("https://api.example.com", api)
//	post, err := client.Call(ctx, "getPost", nil, &zodios.RequestConfig{
//	    Params: map[string]any{"id": 1},
//	})
//
// Validation is on by default; disable it with WithValidation(false). Debug
// logging is off until WithDebug or WithDebugConfig enables it.
package zodios
