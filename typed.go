package zodios

import (
	"context"
	"encoding/json"
	"fmt"
)

// As converts a call result to T, directly when the value already is a T
// and through JSON otherwise.
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	if v == nil {
		return zero, nil
	}
	data, merr := json.Marshal(v)
	if merr != nil {
		return zero, fmt.Errorf("zodios: cannot convert %T: %w", v, merr)
	}
	var out T
	if uerr := json.Unmarshal(data, &out); uerr != nil {
		return zero, fmt.Errorf("zodios: cannot convert %T: %w", v, uerr)
	}
	return out, nil
}

// RequestAs is Client.Request with the result converted to T.
func RequestAs[T any](ctx context.Context, c *Client, cfg RequestConfig) (T, error) {
	return As[T](c.Request(ctx, cfg))
}

// CallAs is Client.Call with the result converted to T.
func CallAs[T any](ctx context.Context, c *Client, alias string, data any, cfg *RequestConfig) (T, error) {
	return As[T](c.Call(ctx, alias, data, cfg))
}
